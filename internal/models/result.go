package models

import "time"

// ResultRecord is written once per run to the Results collection.
type ResultRecord struct {
	ID        string                   `firestore:"id" json:"id"`
	File      string                   `firestore:"file" json:"file"`
	Timestamp time.Time                `firestore:"timestamp" json:"timestamp"`
	Prompts   []map[string]interface{} `firestore:"prompts" json:"prompts"`
}
