package models

import "strings"

// Document is one uploaded file, held in memory for the duration of a single run.
type Document struct {
	Name        string
	Bucket      string
	ObjectPath  string
	ContentType string
	Size        int64
	Data        []byte
}

// Page is the text extracted from one page of a document.
type Page struct {
	PageNumber int    `json:"pageNumber"`
	Content    string `json:"content"`
}

// AnalysisResult is the full output of the analysis step. It is also the payload
// written to the diagnostics bucket.
type AnalysisResult struct {
	ModelID     string `json:"modelId"`
	ContentType string `json:"contentType"`
	Pages       []Page `json:"pages"`
}

// Text joins the content of every page, in page order, separated by newlines.
func (r *AnalysisResult) Text() string {
	if r == nil {
		return ""
	}
	contents := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		contents[i] = p.Content
	}
	return strings.Join(contents, "\n")
}
