package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/coursechat/coursechat/internal/vectorstore"
)

// OutlineInput defines input for the get_course_outline tool.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title, full or partial (e.g. 'MCP', 'Introduction')"`
}

// Outline is the get_course_outline tool. It resolves a fuzzy course name,
// renders the stored lesson list, and records the course as a citation in
// the query's Collector.
type Outline struct {
	store  *vectorstore.Store
	logger *slog.Logger
}

// NewOutline creates the outline tool.
func NewOutline(store *vectorstore.Store, logger *slog.Logger) (*Outline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Outline{store: store, logger: logger}, nil
}

// Execute returns the course outline as display text. Like the search tool,
// failures become result strings the model can act on.
func (o *Outline) Execute(ctx *ai.ToolContext, input OutlineInput) (string, error) {
	o.logger.Info("get_course_outline called", "course_name", input.CourseName)

	title, err := o.store.ResolveCourseName(ctx, input.CourseName)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", input.CourseName), nil
		}
		o.logger.Warn("course resolution failed", "course_name", input.CourseName, "error", err)
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	outline, err := o.store.Outline(ctx, title)
	if err != nil {
		o.logger.Warn("outline lookup failed", "title", title, "error", err)
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	CollectorFrom(ctx).Add(Source{Text: outline.Title, Link: outline.Link})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course Title: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", outline.Link)
	}
	fmt.Fprintf(&sb, "Lessons (%d):\n", len(outline.Lessons))
	for _, l := range outline.Lessons {
		fmt.Fprintf(&sb, "%d. %s\n", l.Number, l.Title)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
