package model

// Question is a chat prompt as recorded by the external tagging service.
// This system only reads these. Timestamp is kept as the string the
// tagger wrote (ISO 8601, no zone).
type Question struct {
	ID        string   `json:"questionId"`
	Question  string   `json:"question"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp"`
}

// TagCount is one row of the admin tag analytics.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
