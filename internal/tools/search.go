// Package tools defines the Genkit tools the assistant can call during a
// query, plus the registry used to dispatch tool requests by name.
package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/coursechat/coursechat/internal/vectorstore"
)

// Genkit tool names.
const (
	// SearchCourseContentName is the tool for semantic search over chunks.
	SearchCourseContentName = "search_course_content"
	// GetCourseOutlineName is the tool for retrieving a course outline.
	GetCourseOutlineName = "get_course_outline"
)

// SearchInput defines input for the search_course_content tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to look for in the course materials"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title to search within, full or partial (e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 3)"`
}

// Source identifies where a search hit came from, for display as a citation.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Search is the search_course_content tool. It resolves fuzzy course names,
// runs filtered semantic search, and records each hit as a citation in the
// query's Collector. The tool holds no per-query state and is safe for
// concurrent use.
type Search struct {
	store  *vectorstore.Store
	logger *slog.Logger
}

// NewSearch creates the search tool.
func NewSearch(store *vectorstore.Store, logger *slog.Logger) (*Search, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Search{store: store, logger: logger}, nil
}

// Execute runs one search. All failures are reported as result strings, not
// errors: the model reads them and can tell the user or retry differently.
func (s *Search) Execute(ctx *ai.ToolContext, input SearchInput) (string, error) {
	s.logger.Info("search_course_content called",
		"query", input.Query, "course_name", input.CourseName, "lesson_number", input.LessonNumber)

	opts := []vectorstore.SearchOption{}
	courseTitle := ""
	if input.CourseName != "" {
		title, err := s.store.ResolveCourseName(ctx, input.CourseName)
		if err != nil {
			if errors.Is(err, vectorstore.ErrCourseNotFound) {
				return fmt.Sprintf("No course found matching '%s'", input.CourseName), nil
			}
			s.logger.Warn("course resolution failed", "course_name", input.CourseName, "error", err)
			return fmt.Sprintf("Search error: %v", err), nil
		}
		courseTitle = title
		opts = append(opts, vectorstore.WithCourse(title))
	}
	if input.LessonNumber != nil {
		opts = append(opts, vectorstore.WithLesson(*input.LessonNumber))
	}

	results, err := s.store.Search(ctx, input.Query, opts...)
	if err != nil {
		s.logger.Warn("content search failed", "query", input.Query, "error", err)
		return fmt.Sprintf("Search error: %v", err), nil
	}

	if len(results) == 0 {
		var filter strings.Builder
		if courseTitle != "" {
			fmt.Fprintf(&filter, " in course '%s'", courseTitle)
		}
		if input.LessonNumber != nil {
			fmt.Fprintf(&filter, " in lesson %d", *input.LessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filter.String()), nil
	}

	type linkKey struct {
		title  string
		lesson int
	}
	var blocks []string
	sources := make([]Source, 0, len(results))
	links := map[linkKey]string{}
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%s - Lesson %d]\n%s", r.CourseTitle, r.LessonNumber, r.Content))

		key := linkKey{r.CourseTitle, r.LessonNumber}
		link, cached := links[key]
		if !cached {
			link, err = s.store.LessonLink(ctx, r.CourseTitle, r.LessonNumber)
			if err != nil {
				link = ""
			}
			links[key] = link
		}
		sources = append(sources, Source{
			Text: fmt.Sprintf("%s - Lesson %d", r.CourseTitle, r.LessonNumber),
			Link: link,
		})
	}
	CollectorFrom(ctx).Add(sources...)

	s.logger.Info("search_course_content succeeded", "query", input.Query, "result_count", len(results))
	return strings.Join(blocks, "\n\n"), nil
}

// Register defines both course tools with Genkit and returns them.
func Register(g *genkit.Genkit, search *Search, outline *Outline) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if search == nil || outline == nil {
		return nil, fmt.Errorf("search and outline tools are required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchCourseContentName,
			"Search course materials with smart course name matching and lesson filtering. "+
				"Returns matching excerpts labeled with their course and lesson. "+
				"Use this for questions about specific course content or detailed educational materials.",
			search.Execute),
		genkit.DefineTool(g, GetCourseOutlineName,
			"Get the complete outline of a course: its title, link, and every lesson number and title. "+
				"Use this for questions about a course's structure or lesson list.",
			outline.Execute),
	}, nil
}
