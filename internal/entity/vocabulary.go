package entity

import "strings"

// VocabularyWord pairs a prompt word with its translation.
type VocabularyWord struct {
	ID     int64  `json:"id"`
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

type QuizChallenge struct {
	PromptWord     string `json:"prompt_word"`
	ExpectedAnswer string `json:"-"`
}

func NewQuizChallenge(word *VocabularyWord) *QuizChallenge {
	return &QuizChallenge{
		PromptWord:     word.Prompt,
		ExpectedAnswer: word.Answer,
	}
}

// Accepts is a case-insensitive exact match.
func (that *QuizChallenge) Accepts(answer string) bool {
	return strings.EqualFold(answer, that.ExpectedAnswer)
}
