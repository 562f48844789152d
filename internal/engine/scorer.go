package engine

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// NotesQuestionNo marks free-text note fields; they are never graded.
	NotesQuestionNo = "Notes"
	// NotApplicable is the answer a learner gives to opt a question out of grading.
	NotApplicable = "Not applicable"

	sectionSeparator = ". "
)

// FormQuestion is one entry of a service level's answer key.
type FormQuestion struct {
	Section       string   `json:"section" validate:"required"`
	QuestionNo    string   `json:"question_no" validate:"required"`
	QuestionType  string   `json:"question_type" validate:"required"`
	PreFill       string   `json:"pre_fill"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
}

// FormAnswer is one submitted answer.
type FormAnswer struct {
	Section    string `json:"section"`
	QuestionNo string `json:"question_no"`
	Answer     string `json:"answer"`
}

// SectionScore is the graded result of one form section.
type SectionScore struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Total       int    `json:"total"`
	ShowScore   bool   `json:"showScore"`
	ShowAnswers bool   `json:"showAnswers"`
}

// OverallScore sums every section.
type OverallScore struct {
	Score      int `json:"score"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Scores groups overall and per-section results.
type Scores struct {
	Overall  OverallScore   `json:"overall"`
	Sections []SectionScore `json:"sections"`
}

// ScoreResult is the output of Score.
type ScoreResult struct {
	Scores         Scores `json:"scores"`
	HasAnsweredAll bool   `json:"hasAnsweredAll"`
}

// ScoreOptions tunes grading.
type ScoreOptions struct {
	// ExcludedSections holds section letters ("A", "B", ...) whose scores are
	// withheld. Their answers are still shown.
	ExcludedSections map[string]bool
}

func (o ScoreOptions) excluded(letter string) bool {
	return letter != "" && o.ExcludedSections[letter]
}

type answerKey struct {
	section    string
	questionNo string
}

// Score grades answers against the questions of a service level.
func Score(questions []FormQuestion, answers []FormAnswer, opts ScoreOptions) ScoreResult {
	byKey := make(map[answerKey]FormAnswer, len(answers))
	for _, a := range answers {
		k := answerKey{a.Section, a.QuestionNo}
		if _, dup := byKey[k]; !dup {
			byKey[k] = a
		}
	}

	var sections []*SectionScore
	index := make(map[string]*SectionScore)
	letters := make(map[string]string)
	hasAnsweredAll := true

	for _, q := range questions {
		sec, ok := index[q.Section]
		if !ok {
			sec = &SectionScore{Name: q.Section}
			index[q.Section] = sec
			sections = append(sections, sec)
			letters[q.Section] = SectionLetter(q.Section)
		}

		answer, found := byKey[answerKey{q.Section, q.QuestionNo}]
		if !found {
			answer = FormAnswer{Section: q.Section, QuestionNo: q.QuestionNo}
		}

		isNotes := q.QuestionNo == NotesQuestionNo
		if answer.Answer == "" && !isNotes && answer.QuestionNo != NotApplicable && !opts.excluded(letters[q.Section]) {
			hasAnsweredAll = false
		}

		if isNotes || q.CorrectAnswer == "" || answer.Answer == NotApplicable {
			continue
		}
		sec.Total++
		if answer.Answer == q.CorrectAnswer {
			sec.Score++
		}
	}

	result := ScoreResult{HasAnsweredAll: hasAnsweredAll}
	result.Scores.Sections = make([]SectionScore, 0, len(sections))
	for _, sec := range sections {
		sec.ShowScore, sec.ShowAnswers = true, true
		if sec.Total == 0 {
			sec.ShowScore, sec.ShowAnswers = false, false
		}
		if opts.excluded(letters[sec.Name]) {
			sec.Score, sec.Total = 0, 0
			sec.ShowScore, sec.ShowAnswers = false, true
		}
		result.Scores.Overall.Score += sec.Score
		result.Scores.Overall.Total += sec.Total
		result.Scores.Sections = append(result.Scores.Sections, *sec)
	}
	result.Scores.Overall.Percentage = Percentage(result.Scores.Overall.Score, result.Scores.Overall.Total)
	return result
}

// Percentage returns floor(score/total*100), or 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 || score <= 0 {
		return 0
	}
	p := score * 100 / total
	if p > 100 {
		return 100
	}
	return p
}

// SectionLetter extracts "A" from "A. Identification Information". Malformed
// names are logged and yield "".
func SectionLetter(name string) string {
	parts := strings.Split(name, sectionSeparator)
	if len(parts) != 2 {
		log.Warn().Str("section", name).Msg("Section name does not follow '<Letter>. <Title>', ignoring section exclusions for it")
		return ""
	}
	return strings.TrimSpace(parts[0])
}
