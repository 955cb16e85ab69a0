// Package rag wires document processing, vector storage, tool-calling
// generation and session history into the course assistant's top-level API:
// ingest course files, answer questions with citations.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/generation"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/tools"
	"github.com/coursechat/coursechat/internal/vectorstore"
)

// ingestExtensions are the file extensions considered course documents
// during directory ingestion.
var ingestExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

// Config contains all required dependencies for the System.
type Config struct {
	Store     *vectorstore.Store
	Processor *course.Processor
	Generator *generation.Generator
	Sessions  *session.Store
	Logger    *slog.Logger
}

func (cfg Config) validate() error {
	switch {
	case cfg.Store == nil:
		return errors.New("vector store is required")
	case cfg.Processor == nil:
		return errors.New("document processor is required")
	case cfg.Generator == nil:
		return errors.New("generator is required")
	case cfg.Sessions == nil:
		return errors.New("session store is required")
	case cfg.Logger == nil:
		return errors.New("logger is required")
	}
	return nil
}

// Answer is the result of one query: the final text, the citations the
// tools recorded (empty when no tool ran), and the session the exchange was
// recorded under.
type Answer struct {
	Text      string
	Sources   []tools.Source
	SessionID string
}

// Analytics summarizes the ingested corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System is the top-level orchestrator. Safe for concurrent use.
type System struct {
	store     *vectorstore.Store
	processor *course.Processor
	generator *generation.Generator
	sessions  *session.Store
	logger    *slog.Logger
}

// New creates a System.
func New(cfg Config) (*System, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &System{
		store:     cfg.Store,
		processor: cfg.Processor,
		generator: cfg.Generator,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,
	}, nil
}

// Answer handles one user query. An empty sessionID starts a new session;
// the returned Answer carries the ID to continue the conversation.
//
// The exchange is appended to history only on success. Citations are
// captured through a per-query Collector on the context, so concurrent
// sessions cannot see or drain each other's sources.
func (s *System) Answer(ctx context.Context, sessionID, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, errors.New("query is empty")
	}
	if sessionID == "" {
		sessionID = s.sessions.Create()
	}

	history := s.sessions.Messages(sessionID)

	collector := tools.NewCollector()
	text, err := s.generator.Generate(tools.WithCollector(ctx, collector), query, history)
	if err != nil {
		return Answer{}, fmt.Errorf("answering query: %w", err)
	}

	sources := collector.Take()

	s.sessions.Append(sessionID, query, text)

	s.logger.Info("query answered",
		"session_id", sessionID, "query_length", len(query), "source_count", len(sources))
	return Answer{Text: text, Sources: sources, SessionID: sessionID}, nil
}

// IngestFile processes one course document and stores it. Returns the parsed
// course and the number of chunks stored. Malformed documents return a
// wrapped course.ErrMalformedDocument.
func (s *System) IngestFile(ctx context.Context, path string) (course.Course, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return course.Course{}, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	c, chunks, err := s.processor.Process(string(data))
	if err != nil {
		return course.Course{}, 0, fmt.Errorf("processing %s: %w", path, err)
	}

	if err := s.store.UpsertCourse(ctx, c, chunks); err != nil {
		return course.Course{}, 0, fmt.Errorf("storing %s: %w", path, err)
	}

	s.logger.Info("course ingested", "title", c.Title, "lessons", len(c.Lessons), "chunks", len(chunks))
	return c, len(chunks), nil
}

// IngestDirectory ingests every course document in dir, in filename order.
// Courses whose title is already stored are skipped, as are malformed files
// (with a warning); neither aborts the batch. Returns the number of courses
// added and the total chunks stored.
func (s *System) IngestDirectory(ctx context.Context, dir string) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	existing := make(map[string]bool)
	for _, title := range s.store.CourseTitles() {
		existing[title] = true
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !ingestExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	added, totalChunks := 0, 0
	for _, name := range names {
		path := filepath.Join(dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		c, chunks, err := s.processor.Process(string(data))
		if err != nil {
			if errors.Is(err, course.ErrMalformedDocument) {
				s.logger.Warn("skipping malformed course document", "path", path, "error", err)
				continue
			}
			return added, totalChunks, fmt.Errorf("processing %s: %w", path, err)
		}

		if existing[c.Title] {
			s.logger.Debug("skipping already ingested course", "title", c.Title, "path", path)
			continue
		}

		if err := s.store.UpsertCourse(ctx, c, chunks); err != nil {
			return added, totalChunks, fmt.Errorf("storing %s: %w", path, err)
		}
		existing[c.Title] = true
		added++
		totalChunks += len(chunks)
		s.logger.Info("course ingested", "title", c.Title, "chunks", len(chunks))
	}

	return added, totalChunks, nil
}

// Analytics returns corpus statistics for the courses endpoint.
func (s *System) Analytics() Analytics {
	titles := s.store.CourseTitles()
	return Analytics{TotalCourses: len(titles), CourseTitles: titles}
}

// Sessions exposes the session store for transport-level session management.
func (s *System) Sessions() *session.Store {
	return s.sessions
}
