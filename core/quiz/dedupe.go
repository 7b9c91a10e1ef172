package quiz

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DuplicateRatio is the similarity above which two generated questions are considered the same.
const DuplicateRatio = 0.9

// DedupeQuestions drops questions whose prompt (and code, for code analysis) is near-identical
// to an earlier question of the same type. It returns the kept questions and how many were dropped.
func DedupeQuestions(questions []Question, threshold float64) ([]Question, int) {
	kept := make([]Question, 0, len(questions))
	keptTokens := make([][]string, 0, len(questions))

outer:
	for _, q := range questions {
		tokens := questionTokens(q)
		for i, k := range kept {
			if k.Type != q.Type {
				continue
			}
			m := difflib.NewMatcher(keptTokens[i], tokens)
			// QuickRatio is an upper bound of Ratio and much cheaper
			if m.QuickRatio() >= threshold && m.Ratio() >= threshold {
				continue outer
			}
		}
		kept = append(kept, q)
		keptTokens = append(keptTokens, tokens)
	}
	return kept, len(questions) - len(kept)
}

func questionTokens(q Question) []string {
	s := strings.ToLower(q.Prompt)
	if q.Type == QuestionCodeAnalysis && q.Code != "" {
		s += " " + q.Code
	}
	return strings.Fields(s)
}
