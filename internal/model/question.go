// Package model holds the harvested record types shared across the CLI.
package model

// Question is one harvested quiz question. QuestionID is the natural key:
// the dataset holds at most one Question per ID, sorted ascending.
type Question struct {
	QuestionID int    `csv:"question_id" json:"question_id"`
	Question   string `csv:"question" json:"question"`
	Answer     string `csv:"answer" json:"answer"`
	Comment    string `csv:"comment" json:"comment"`
	Source     string `csv:"source" json:"source"`
	Packet     string `csv:"packet" json:"packet"`
	ImageURL   string `csv:"image_url" json:"image_url"`
	Author     string `csv:"author" json:"author"`
}

// HasImage reports whether the question references an attached image.
func (q Question) HasImage() bool {
	return q.ImageURL != ""
}
