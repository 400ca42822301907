package models

import (
	"maps"
	"time"
)

// Field names used by records in the Queries collection.
const (
	FieldID       = "id"
	FieldPrompt   = "prompt"
	FieldQuestion = "question"
	FieldAnswer   = "answer"
)

// Prompt is a stored question answered against every processed document.
// Fields holds the record as stored so unknown fields survive into the result snapshot.
type Prompt struct {
	ID         string
	Question   string
	Answer     string
	Fields     map[string]interface{}
	UpdateTime time.Time
}

// NewPromptFromData builds a Prompt from a raw Firestore record. The question is read
// from "prompt", falling back to "question".
func NewPromptFromData(id string, data map[string]interface{}, updateTime time.Time) *Prompt {
	p := &Prompt{
		ID:         id,
		Fields:     maps.Clone(data),
		UpdateTime: updateTime,
	}
	if p.Fields == nil {
		p.Fields = map[string]interface{}{}
	}
	p.Question = stringField(data, FieldPrompt)
	if p.Question == "" {
		p.Question = stringField(data, FieldQuestion)
	}
	p.Answer = stringField(data, FieldAnswer)
	return p
}

// SetAnswer records the answer both on the struct and in the raw record.
func (p *Prompt) SetAnswer(answer string) {
	p.Answer = answer
	if p.Fields == nil {
		p.Fields = map[string]interface{}{}
	}
	p.Fields[FieldAnswer] = answer
}

// Snapshot returns a copy of the record suitable for embedding in a result.
func (p *Prompt) Snapshot() map[string]interface{} {
	snap := maps.Clone(p.Fields)
	if snap == nil {
		snap = map[string]interface{}{}
	}
	snap[FieldID] = p.ID
	snap[FieldAnswer] = p.Answer
	return snap
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
