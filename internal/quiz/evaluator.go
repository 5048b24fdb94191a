package quiz

import (
	"strings"

	"github.com/bembido/video-to-quiz/internal/domain"
)

// IsCorrect reports whether answer matches one of the accepted answers after trimming and
// case folding. Inner whitespace and punctuation are compared as-is.
func IsCorrect(question domain.Question, answer string) bool {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	for _, accepted := range question.Accepted {
		if strings.ToLower(accepted) == normalized {
			return true
		}
	}
	return false
}

// Score checks every question in order and stops at the first missing or wrong answer.
// An empty answer counts as missing.
func Score(quiz domain.Quiz, answers map[string]string) bool {
	for _, q := range quiz.Questions {
		answer, ok := answers[q.ID]
		if !ok || answer == "" || !IsCorrect(q, answer) {
			return false
		}
	}
	return true
}
