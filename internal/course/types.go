// Package course defines the course domain model and the document processor
// that turns raw course material files into courses and retrieval chunks.
package course

import "fmt"

// Course represents one course parsed from a course material file.
// The title is the canonical identifier: re-ingesting a course with the same
// title replaces all of its stored records.
type Course struct {
	Title      string   // Unique identifier across the store
	Link       string   // Optional course URL
	Instructor string   // Optional instructor name
	Lessons    []Lesson // Ordered by lesson number as they appear in the file
}

// Lesson is a single lesson within a course. Lesson numbers are unique within
// a course but not globally. Lessons are immutable after ingestion.
type Lesson struct {
	Number int
	Title  string
	Link   string // Optional lesson URL
	Body   string // Raw lesson text, free-form
}

// Chunk is a fixed-size (with overlap) slice of a lesson body, the unit of
// retrieval. Index orders chunks within their lesson; concatenating chunks in
// index order with the overlap trimmed reconstructs the lesson body exactly.
type Chunk struct {
	CourseTitle  string
	LessonNumber int
	Index        int
	Text         string // Display text, the raw slice of the lesson body
}

// EmbeddingText returns the text that is embedded for this chunk.
// The contextual prefix keeps course and lesson identity in the vector even
// when the raw slice alone is ambiguous. The stored display text stays raw.
func (c Chunk) EmbeddingText() string {
	return fmt.Sprintf("Course %s Lesson %d content: %s", c.CourseTitle, c.LessonNumber, c.Text)
}

// Outline is the catalog-level view of a course: title, link, and the
// complete lesson list without bodies.
type Outline struct {
	Title   string          `json:"title"`
	Link    string          `json:"link,omitempty"`
	Lessons []OutlineLesson `json:"lessons"`
}

// OutlineLesson is one lesson entry in an Outline.
type OutlineLesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Outline returns the catalog-level view of the course.
func (c Course) Outline() Outline {
	lessons := make([]OutlineLesson, len(c.Lessons))
	for i, l := range c.Lessons {
		lessons[i] = OutlineLesson{Number: l.Number, Title: l.Title, Link: l.Link}
	}
	return Outline{Title: c.Title, Link: c.Link, Lessons: lessons}
}
