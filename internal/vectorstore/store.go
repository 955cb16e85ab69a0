// Package vectorstore persists course metadata and content chunks in an
// embedded chromem-go vector database and exposes filtered nearest-neighbor
// search over them.
//
// Two logical collections are kept:
//   - course_catalog: one record per course, embedding the title for fuzzy
//     course-name resolution; lessons are serialized into record metadata.
//   - course_content: one record per chunk, embedding the chunk's contextual
//     text, with course title / lesson number / chunk index metadata for
//     equality filtering.
//
// Concurrency contract: reads (resolution, search, outlines) may run
// concurrently; UpsertCourse takes the write lock so a course is always
// replaced as a unit and a search never observes a mix of old and new chunks.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/coursechat/coursechat/internal/course"
)

// Collection names inside the chromem database.
const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"
)

// Metadata keys shared by both collections.
const (
	metaTitle        = "title"
	metaLink         = "link"
	metaInstructor   = "instructor"
	metaLessons      = "lessons_json"
	metaLessonCount  = "lesson_count"
	metaCourseTitle  = "course_title"
	metaLessonNumber = "lesson_number"
	metaChunkIndex   = "chunk_index"
)

// ErrCourseNotFound indicates that fuzzy course-name resolution found no
// acceptable match. It is recovered close to the source: the search tool
// converts it into a tool-result string the model can react to.
var ErrCourseNotFound = errors.New("course not found")

// Defaults applied by New when Config leaves the field zero.
const (
	DefaultMaxResults    = 5
	DefaultMinSimilarity = 0.3

	// resolveCandidates bounds how many catalog records one resolution
	// inspects for the substring pre-pass.
	resolveCandidates = 10
)

// Config holds vector store settings. The zero value is usable: an in-memory
// database with default limits.
type Config struct {
	// PersistDir is the directory for the on-disk database.
	// Empty means in-memory only (useful for tests and ephemeral runs).
	PersistDir string

	// MaxResults caps how many chunks a search returns. Default 5.
	MaxResults int

	// MinSimilarity is the minimum cosine similarity a semantic name
	// resolution match must clear. Default 0.3.
	MinSimilarity float32
}

// Result is a single search hit: one chunk plus its similarity score.
type Result struct {
	CourseTitle  string
	LessonNumber int
	ChunkIndex   int
	Content      string
	Similarity   float32
}

// Store manages the two course collections.
// Safe for concurrent use; see the package comment for the write contract.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	catalog *chromem.Collection
	content *chromem.Collection
	embed   chromem.EmbeddingFunc
	logger  *slog.Logger

	maxResults    int
	minSimilarity float32

	// titles mirrors the catalog for cheap listing; chromem has no
	// collection listing API. Rebuilt from the catalog on open.
	titles map[string]struct{}
}

// New creates a Store backed by chromem-go. When cfg.PersistDir is set, the
// database is loaded from (and persisted to) disk; otherwise it lives in
// memory. The embedding function is used for both ingestion and queries.
func New(ctx context.Context, cfg Config, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if embed == nil {
		return nil, errors.New("embedding function is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}

	var db *chromem.DB
	var err error
	if cfg.PersistDir != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistDir, false)
		if err != nil {
			return nil, fmt.Errorf("opening vector database: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	catalog, err := db.GetOrCreateCollection(catalogCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating catalog collection: %w", err)
	}
	content, err := db.GetOrCreateCollection(contentCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating content collection: %w", err)
	}

	s := &Store{
		db:            db,
		catalog:       catalog,
		content:       content,
		embed:         embed,
		logger:        logger,
		maxResults:    cfg.MaxResults,
		minSimilarity: cfg.MinSimilarity,
		titles:        make(map[string]struct{}),
	}

	if err := s.rebuildTitles(ctx); err != nil {
		return nil, err
	}

	logger.Debug("vector store opened",
		"persist_dir", cfg.PersistDir,
		"courses", len(s.titles),
		"chunks", content.Count())
	return s, nil
}

// rebuildTitles restores the in-memory title index from a persisted catalog.
// chromem exposes no listing API, so the catalog is queried once for all
// records (one embedding call; skipped entirely for an empty catalog).
func (s *Store) rebuildTitles(ctx context.Context) error {
	n := s.catalog.Count()
	if n == 0 {
		return nil
	}
	results, err := s.catalog.Query(ctx, "course", n, nil, nil)
	if err != nil {
		return fmt.Errorf("listing catalog: %w", err)
	}
	for _, r := range results {
		if title := r.Metadata[metaTitle]; title != "" {
			s.titles[title] = struct{}{}
		}
	}
	return nil
}

// UpsertCourse replaces the course metadata record and all content records
// for the course's title as a single logical unit: existing records are
// deleted first, then the new ones inserted, all under the write lock.
func (s *Store) UpsertCourse(ctx context.Context, c course.Course, chunks []course.Chunk) error {
	if c.Title == "" {
		return errors.New("course title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.titles[c.Title]; exists {
		if err := s.content.Delete(ctx, map[string]string{metaCourseTitle: c.Title}, nil); err != nil {
			return fmt.Errorf("deleting stale chunks for %q: %w", c.Title, err)
		}
		if err := s.catalog.Delete(ctx, nil, nil, c.Title); err != nil {
			return fmt.Errorf("deleting stale catalog record for %q: %w", c.Title, err)
		}
	}

	lessonsJSON, err := json.Marshal(c.Outline().Lessons)
	if err != nil {
		return fmt.Errorf("marshaling lessons for %q: %w", c.Title, err)
	}

	catalogDoc := chromem.Document{
		ID:      c.Title,
		Content: c.Title, // embedded for fuzzy name resolution
		Metadata: map[string]string{
			metaTitle:       c.Title,
			metaLink:        c.Link,
			metaInstructor:  c.Instructor,
			metaLessons:     string(lessonsJSON),
			metaLessonCount: strconv.Itoa(len(c.Lessons)),
		},
	}
	if err := s.catalog.AddDocument(ctx, catalogDoc); err != nil {
		return fmt.Errorf("storing catalog record for %q: %w", c.Title, err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		// Embed the contextual text but store the raw chunk for display.
		embedding, err := s.embed(ctx, ch.EmbeddingText())
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %q lesson %d: %w", ch.Index, c.Title, ch.LessonNumber, err)
		}
		docs = append(docs, chromem.Document{
			ID:        fmt.Sprintf("%s::%d::%d", c.Title, ch.LessonNumber, ch.Index),
			Content:   ch.Text,
			Embedding: embedding,
			Metadata: map[string]string{
				metaCourseTitle:  ch.CourseTitle,
				metaLessonNumber: strconv.Itoa(ch.LessonNumber),
				metaChunkIndex:   strconv.Itoa(ch.Index),
			},
		})
	}
	if len(docs) > 0 {
		if err := s.content.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("storing chunks for %q: %w", c.Title, err)
		}
	}

	s.titles[c.Title] = struct{}{}
	s.logger.Debug("course upserted", "title", c.Title, "chunks", len(docs))
	return nil
}

// ResolveCourseName maps a user-supplied course name to the canonical stored
// title. Exact and substring matches win over semantic similarity; a semantic
// match must clear the minimum similarity threshold. Returns a wrapped
// ErrCourseNotFound when nothing matches.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.catalog.Count()
	if n == 0 || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}

	// Exact title short-circuit.
	if _, ok := s.titles[name]; ok {
		return name, nil
	}

	k := min(resolveCandidates, n)
	results, err := s.catalog.Query(ctx, name, k, nil, nil)
	if err != nil {
		return "", fmt.Errorf("resolving course name %q: %w", name, err)
	}

	// Substring pre-pass over the candidates, in similarity order.
	lower := strings.ToLower(name)
	for _, r := range results {
		title := r.Metadata[metaTitle]
		if strings.Contains(strings.ToLower(title), lower) {
			return title, nil
		}
	}

	if len(results) > 0 && results[0].Similarity >= s.minSimilarity {
		return results[0].Metadata[metaTitle], nil
	}

	s.logger.Debug("course name resolution failed", "name", name, "candidates", len(results))
	return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
}

// SearchOption configures Search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	courseTitle string
	lesson      *int
	limit       int
}

// WithCourse restricts results to one course. The title must already be the
// canonical stored title; use ResolveCourseName for user-supplied names.
func WithCourse(title string) SearchOption {
	return func(c *searchConfig) { c.courseTitle = title }
}

// WithLesson restricts results to one lesson number (exact match).
func WithLesson(n int) SearchOption {
	return func(c *searchConfig) { c.lesson = &n }
}

// WithLimit overrides the configured maximum result count.
func WithLimit(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.limit = k
		}
	}
}

// Search embeds the query and returns the nearest content chunks, restricted
// to records matching all supplied filters, ordered by descending similarity.
// An empty result list is a valid outcome, not an error.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := searchConfig{limit: s.maxResults}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.content.Count()
	if total == 0 {
		return nil, nil
	}

	var where map[string]string
	if cfg.courseTitle != "" || cfg.lesson != nil {
		where = make(map[string]string, 2)
		if cfg.courseTitle != "" {
			where[metaCourseTitle] = cfg.courseTitle
		}
		if cfg.lesson != nil {
			where[metaLessonNumber] = strconv.Itoa(*cfg.lesson)
		}
	}

	// chromem rejects nResults larger than the collection size; filtered
	// subsets smaller than nResults just return fewer hits.
	k := min(cfg.limit, total)
	hits, err := s.content.Query(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("searching content: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		lesson, _ := strconv.Atoi(h.Metadata[metaLessonNumber])
		index, _ := strconv.Atoi(h.Metadata[metaChunkIndex])
		results = append(results, Result{
			CourseTitle:  h.Metadata[metaCourseTitle],
			LessonNumber: lesson,
			ChunkIndex:   index,
			Content:      h.Content,
			Similarity:   h.Similarity,
		})
	}
	return results, nil
}

// Outline returns the catalog-level view of a course by canonical title.
// Returns a wrapped ErrCourseNotFound for unknown titles.
func (s *Store) Outline(ctx context.Context, title string) (course.Outline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.catalog.GetByID(ctx, title)
	if err != nil {
		return course.Outline{}, fmt.Errorf("%w: %q", ErrCourseNotFound, title)
	}

	var lessons []course.OutlineLesson
	if raw := doc.Metadata[metaLessons]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &lessons); err != nil {
			return course.Outline{}, fmt.Errorf("decoding lessons for %q: %w", title, err)
		}
	}
	return course.Outline{
		Title:   doc.Metadata[metaTitle],
		Link:    doc.Metadata[metaLink],
		Lessons: lessons,
	}, nil
}

// LessonLink returns the stored link for one lesson of a course, or the
// empty string when the lesson has no link.
func (s *Store) LessonLink(ctx context.Context, title string, lesson int) (string, error) {
	outline, err := s.Outline(ctx, title)
	if err != nil {
		return "", err
	}
	for _, l := range outline.Lessons {
		if l.Number == lesson {
			return l.Link, nil
		}
	}
	return "", nil
}

// CourseTitles returns all canonical course titles in sorted order.
func (s *Store) CourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.titles))
	for t := range s.titles {
		titles = append(titles, t)
	}
	slices.Sort(titles)
	return titles
}

// CourseCount returns the number of stored courses.
func (s *Store) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.titles)
}

// ChunkCount returns the number of stored content chunks.
func (s *Store) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content.Count()
}
