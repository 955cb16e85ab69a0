package testutil

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"
)

// NewGenkit initializes a Genkit instance with no provider plugins, suitable
// for registering mock models and embedders.
func NewGenkit(t *testing.T) *genkit.Genkit {
	t.Helper()
	return genkit.Init(context.Background())
}

// SampleCourseText is a small, well-formed course document used across tests.
const SampleCourseText = `Course Title: Test Course
Link: https://example.com/test
Instructor: Test Instructor

Lesson 1: Getting Started
Lesson Link: https://example.com/test/lesson/1
Welcome to the course. This lesson covers the basics of the subject,
including terminology and the overall roadmap.

Lesson 2: Going Deeper
This lesson builds on the basics with worked examples and common pitfalls.
`
