package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const softSkillDelimiter = ", "

// The name is greedy so the last ": " separates it from the score.
var softSkillPattern = regexp.MustCompile(`^(\S.*): (\d+)/(\d+)$`)

// SoftSkillRating is one parsed "Skill: score/total" entry.
type SoftSkillRating struct {
	Skill       string   `json:"skill"`
	Score       int      `json:"score"`
	Total       int      `json:"total"`
	Description string   `json:"description"`
	Importance  string   `json:"importance"`
	Assessment  []string `json:"assessment"`
}

// SoftSkillsData is the structured form of a stored soft-skill feedback blob.
type SoftSkillsData struct {
	Summary string            `json:"summary"`
	Ratings []SoftSkillRating `json:"ratings"`
}

type softSkillInfo struct {
	description string
	importance  string
	assessment  []string
}

var softSkillCatalog = map[string]softSkillInfo{
	"Empathy": {
		description: "Recognising and acknowledging the other person's feelings and situation.",
		importance:  "Callers who feel understood share information more openly and stay calmer under stress.",
		assessment: []string{
			"Acknowledged the caller's emotional state",
			"Used reassuring, non-judgemental language",
			"Adjusted tone to the seriousness of the situation",
		},
	},
	"Active Listening": {
		description: "Attending fully to what is said and confirming it was understood.",
		importance:  "Missed details lead to wrong assessments and repeated questions.",
		assessment: []string{
			"Paraphrased or confirmed key details",
			"Did not interrupt the other party",
			"Asked follow-up questions based on previous answers",
		},
	},
	"Adaptability": {
		description: "Changing approach when the conversation or the situation changes.",
		importance:  "Roleplay scenarios escalate; a fixed script breaks down when the caller does not follow it.",
		assessment: []string{
			"Changed questioning strategy when answers were unclear",
			"Handled unexpected information without losing control of the call",
		},
	},
	"Communication": {
		description: "Expressing instructions and questions clearly and concisely.",
		importance:  "Clear wording reduces misunderstandings and shortens the time to an outcome.",
		assessment: []string{
			"Used plain language without jargon",
			"Gave one instruction at a time",
			"Checked that instructions were understood",
		},
	},
	"Problem Solving": {
		description: "Identifying the core issue and working towards a resolution.",
		importance:  "The learner is expected to reach a correct outcome, not only to collect information.",
		assessment: []string{
			"Identified the main problem early",
			"Prioritised actions by urgency",
			"Proposed a concrete next step",
		},
	},
	"Professionalism": {
		description: "Keeping a respectful, policy-compliant manner under pressure.",
		importance:  "Composure sets the tone of the interaction and reflects on the organisation.",
		assessment: []string{
			"Remained calm and courteous throughout",
			"Followed the expected call structure",
		},
	},
	"Conflict Resolution": {
		description: "De-escalating tension and steering disagreements towards agreement.",
		importance:  "Escalated callers withhold information and prolong the interaction.",
		assessment: []string{
			"Recognised signs of escalation",
			"Used de-escalation phrases",
			"Kept the conversation focused on the goal",
		},
	},
	"Patience": {
		description: "Giving the other person time without showing frustration.",
		importance:  "Rushing distressed callers causes them to repeat themselves or disengage.",
		assessment: []string{
			"Allowed pauses for the caller to respond",
			"Repeated information calmly when asked",
		},
	},
	"Confidence": {
		description: "Speaking with authority and conviction.",
		importance:  "A confident tone reassures the caller that the situation is being handled.",
		assessment: []string{
			"Gave instructions decisively",
			"Avoided hedging language",
		},
	},
}

// ParseSoftSkills parses a "Skill: score/total, Skill2: score/total" blob. A nil
// input means there is no feedback and yields nil; unparsable fragments are skipped.
// Fragments are matched verbatim, so stray whitespace makes a fragment unparsable.
func ParseSoftSkills(raw *string) *SoftSkillsData {
	if raw == nil {
		return nil
	}
	data := &SoftSkillsData{Ratings: []SoftSkillRating{}}
	caser := cases.Title(language.English)

	for _, part := range strings.Split(*raw, softSkillDelimiter) {
		m := softSkillPattern.FindStringSubmatch(part)
		if m == nil {
			log.Debug().Str("fragment", part).Msg("Skipping unparsable soft skill fragment")
			continue
		}
		score, errScore := strconv.Atoi(m[2])
		total, errTotal := strconv.Atoi(m[3])
		if errScore != nil || errTotal != nil {
			log.Debug().Str("fragment", part).Msg("Soft skill score out of range, skipping")
			continue
		}

		skill := caser.String(m[1])
		info, known := softSkillCatalog[skill]
		if !known {
			log.Debug().Str("skill", skill).Msg("Unknown soft skill, no rubric metadata")
		}
		assessment := make([]string, len(info.assessment))
		copy(assessment, info.assessment)
		data.Ratings = append(data.Ratings, SoftSkillRating{
			Skill:       skill,
			Score:       score,
			Total:       total,
			Description: info.description,
			Importance:  info.importance,
			Assessment:  assessment,
		})
	}
	return data
}

// KnownSoftSkills lists the skills with rubric metadata, used to prompt the rater.
func KnownSoftSkills() []string {
	return []string{
		"Empathy",
		"Active Listening",
		"Adaptability",
		"Communication",
		"Problem Solving",
		"Professionalism",
		"Conflict Resolution",
		"Patience",
		"Confidence",
	}
}
