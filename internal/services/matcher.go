package services

import "strings"

// Sentinel answers written to every prompt.
const (
	AnswerFound    = "Yes – text contains the phrase."
	AnswerNotFound = "NOT FOUND"
)

// Matcher answers prompts against one document's text.
// It lower-cases the text once so it can be reused for every prompt of a run.
type Matcher struct {
	text string
}

// NewMatcher prepares a Matcher for the given document text.
func NewMatcher(text string) *Matcher {
	return &Matcher{text: strings.ToLower(text)}
}

// Answer reports AnswerFound when the question occurs in the text, ignoring case.
// An empty question never matches.
func (m *Matcher) Answer(question string) string {
	if question == "" {
		return AnswerNotFound
	}
	if strings.Contains(m.text, strings.ToLower(question)) {
		return AnswerFound
	}
	return AnswerNotFound
}

// Answer is a convenience wrapper for a single question.
func Answer(question, text string) string {
	return NewMatcher(text).Answer(question)
}
