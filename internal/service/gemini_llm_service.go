package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/roleplay-sim/config"
	"github.com/lshigami/roleplay-sim/internal/engine"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// ErrRaterUnavailable is returned when no Gemini API key was configured.
var ErrRaterUnavailable = errors.New("soft skill rater is unavailable")

// SoftSkillRater rates a roleplay transcript. The result has the form
// "Skill: score/total, Skill: score/total".
type SoftSkillRater interface {
	RateSoftSkills(ctx context.Context, transcript string) (string, error)
}

type geminiSoftSkillRater struct {
	client *genai.GenerativeModel
}

func NewGeminiSoftSkillRater(cfg *config.Config) (SoftSkillRater, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Soft skill rating will be unavailable.")
		return &geminiSoftSkillRater{client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.2)
	return &geminiSoftSkillRater{client: model}, nil
}

func softSkillPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("You are an experienced call center trainer assessing a learner in a roleplay simulation.\n")
	b.WriteString("Rate the learner's soft skills in the transcript below.\n\n")
	b.WriteString("Rate each of these skills:\n")
	for _, skill := range engine.KnownSoftSkills() {
		b.WriteString("- ")
		b.WriteString(skill)
		b.WriteString("\n")
	}
	b.WriteString("\nTranscript:\n---\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\n")
	b.WriteString("Respond with a single line and nothing else, formatted strictly as:\n")
	b.WriteString("Skill: score/10, Skill: score/10\n")
	b.WriteString("Use whole numbers from 0 to 10 and the skill names exactly as listed.\n")
	return b.String()
}

// normalizeRatings folds a multi-line or bulleted model answer into the
// comma separated form the parser expects.
func normalizeRatings(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSuffix(line, ",")
		if line == "" || line == "---" {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, ", ")
}

func (s *geminiSoftSkillRater) RateSoftSkills(ctx context.Context, transcript string) (string, error) {
	if s.client == nil {
		return "", ErrRaterUnavailable
	}

	resp, err := s.client.GenerateContent(ctx, genai.Text(softSkillPrompt(transcript)))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during soft skill rating")
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Warn().Msg("Gemini returned no candidates or parts in response.")
		return "", fmt.Errorf("gemini returned no content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return normalizeRatings(text.String()), nil
}
