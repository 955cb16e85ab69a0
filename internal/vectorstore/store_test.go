package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"

	chromem "github.com/philippgille/chromem-go"

	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/log"
)

// stubEmbedder returns explicitly assigned vectors, falling back to a
// deterministic hash-derived vector so unrelated texts stay dissimilar.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: make(map[string][]float32)}
}

func (s *stubEmbedder) set(text string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[text] = vec
}

func (s *stubEmbedder) fn() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		s.mu.Lock()
		v, ok := s.vectors[text]
		s.mu.Unlock()
		if ok {
			return v, nil
		}
		return hashVector(text, 8), nil
	}
}

// hashVector derives a stable unit vector from text via SHA-256.
func hashVector(text string, dim int) []float32 {
	h := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(h[(i*4)%28:])
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func newTestStore(t *testing.T, emb *stubEmbedder) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{}, emb.fn(), log.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func testCourse(title string, lessons ...course.Lesson) course.Course {
	return course.Course{Title: title, Link: "https://example.com/" + title, Lessons: lessons}
}

func chunkOf(title string, lesson, index int, text string) course.Chunk {
	return course.Chunk{CourseTitle: title, LessonNumber: lesson, Index: index, Text: text}
}

func TestUpsertAndResolveExact(t *testing.T) {
	emb := newStubEmbedder()
	s := newTestStore(t, emb)
	ctx := context.Background()

	c := testCourse("Building RAG Applications",
		course.Lesson{Number: 1, Title: "Intro", Body: "intro text"})
	chunks := []course.Chunk{chunkOf(c.Title, 1, 0, "intro text")}

	if err := s.UpsertCourse(ctx, c, chunks); err != nil {
		t.Fatalf("UpsertCourse() error: %v", err)
	}

	got, err := s.ResolveCourseName(ctx, "Building RAG Applications")
	if err != nil {
		t.Fatalf("ResolveCourseName() error: %v", err)
	}
	if got != c.Title {
		t.Errorf("resolved %q, want %q", got, c.Title)
	}
}

func TestResolveSubstring(t *testing.T) {
	emb := newStubEmbedder()
	s := newTestStore(t, emb)
	ctx := context.Background()

	for _, title := range []string{"Building RAG Applications", "Intro to Databases"} {
		if err := s.UpsertCourse(ctx, testCourse(title), nil); err != nil {
			t.Fatalf("UpsertCourse(%q) error: %v", title, err)
		}
	}

	got, err := s.ResolveCourseName(ctx, "rag")
	if err != nil {
		t.Fatalf("ResolveCourseName() error: %v", err)
	}
	if got != "Building RAG Applications" {
		t.Errorf("resolved %q", got)
	}
}

func TestResolveSemantic(t *testing.T) {
	emb := newStubEmbedder()
	// The fuzzy name shares a direction with one title only.
	emb.set("Vector Search Fundamentals", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	emb.set("Cooking for Beginners", []float32{0, 1, 0, 0, 0, 0, 0, 0})
	emb.set("similarity search basics", []float32{0.9, 0.1, 0, 0, 0, 0, 0, 0})

	s := newTestStore(t, emb)
	ctx := context.Background()

	for _, title := range []string{"Vector Search Fundamentals", "Cooking for Beginners"} {
		if err := s.UpsertCourse(ctx, testCourse(title), nil); err != nil {
			t.Fatalf("UpsertCourse(%q) error: %v", title, err)
		}
	}

	got, err := s.ResolveCourseName(ctx, "similarity search basics")
	if err != nil {
		t.Fatalf("ResolveCourseName() error: %v", err)
	}
	if got != "Vector Search Fundamentals" {
		t.Errorf("resolved %q", got)
	}
}

func TestResolveNotFound(t *testing.T) {
	emb := newStubEmbedder()
	emb.set("Vector Search Fundamentals", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	emb.set("quantum basket weaving", []float32{0, 0, 0, 1, 0, 0, 0, 0})

	s := newTestStore(t, emb)
	ctx := context.Background()

	// Empty store: nothing can resolve.
	if _, err := s.ResolveCourseName(ctx, "anything"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("empty store: err = %v, want ErrCourseNotFound", err)
	}

	if err := s.UpsertCourse(ctx, testCourse("Vector Search Fundamentals"), nil); err != nil {
		t.Fatalf("UpsertCourse() error: %v", err)
	}

	// Orthogonal query, no substring overlap: must not resolve to a wrong course.
	if _, err := s.ResolveCourseName(ctx, "quantum basket weaving"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestSearchFilters(t *testing.T) {
	emb := newStubEmbedder()
	query := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	emb.set("what are goroutines", query)

	s := newTestStore(t, emb)
	ctx := context.Background()

	goCourse := testCourse("Go Basics")
	goChunks := []course.Chunk{
		chunkOf("Go Basics", 1, 0, "goroutines are lightweight threads"),
		chunkOf("Go Basics", 2, 0, "channels move values between goroutines"),
	}
	pyCourse := testCourse("Python Basics")
	pyChunks := []course.Chunk{
		chunkOf("Python Basics", 1, 0, "the GIL limits python threads"),
	}
	// Make every chunk equally attractive to the query so only filters
	// decide what may be returned.
	for _, ch := range append(slices.Clone(goChunks), pyChunks...) {
		emb.set(ch.EmbeddingText(), query)
	}

	if err := s.UpsertCourse(ctx, goCourse, goChunks); err != nil {
		t.Fatalf("UpsertCourse(go) error: %v", err)
	}
	if err := s.UpsertCourse(ctx, pyCourse, pyChunks); err != nil {
		t.Fatalf("UpsertCourse(py) error: %v", err)
	}

	results, err := s.Search(ctx, "what are goroutines", WithCourse("Go Basics"))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.CourseTitle != "Go Basics" {
			t.Errorf("filtered search leaked course %q", r.CourseTitle)
		}
	}

	results, err = s.Search(ctx, "what are goroutines", WithCourse("Go Basics"), WithLesson(2))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].LessonNumber != 2 {
		t.Fatalf("lesson filter results = %+v", results)
	}

	// Filters that match nothing yield an empty list, not an error.
	results, err = s.Search(ctx, "what are goroutines", WithCourse("Go Basics"), WithLesson(9))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchEmptyStore(t *testing.T) {
	s := newTestStore(t, newStubEmbedder())

	results, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchLimit(t *testing.T) {
	emb := newStubEmbedder()
	s := newTestStore(t, emb)
	ctx := context.Background()

	var chunks []course.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunkOf("Big Course", 1, i, "chunk body"))
	}
	// Distinct IDs but identical text; give each a distinct index in metadata.
	for i := range chunks {
		chunks[i].Text = chunks[i].Text + " " + string(rune('a'+i))
	}
	if err := s.UpsertCourse(ctx, testCourse("Big Course"), chunks); err != nil {
		t.Fatalf("UpsertCourse() error: %v", err)
	}

	results, err := s.Search(ctx, "chunk body")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != DefaultMaxResults {
		t.Errorf("default limit: got %d results, want %d", len(results), DefaultMaxResults)
	}

	results, err = s.Search(ctx, "chunk body", WithLimit(2))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("WithLimit(2): got %d results", len(results))
	}
}

func TestUpsertReplaces(t *testing.T) {
	emb := newStubEmbedder()
	s := newTestStore(t, emb)
	ctx := context.Background()

	c := testCourse("Mutable Course", course.Lesson{Number: 1, Title: "v1"})
	if err := s.UpsertCourse(ctx, c, []course.Chunk{
		chunkOf(c.Title, 1, 0, "old content"),
		chunkOf(c.Title, 1, 1, "more old content"),
	}); err != nil {
		t.Fatalf("UpsertCourse() error: %v", err)
	}

	c2 := testCourse("Mutable Course", course.Lesson{Number: 1, Title: "v2"})
	if err := s.UpsertCourse(ctx, c2, []course.Chunk{
		chunkOf(c.Title, 1, 0, "new content"),
	}); err != nil {
		t.Fatalf("re-UpsertCourse() error: %v", err)
	}

	if got := s.ChunkCount(); got != 1 {
		t.Errorf("ChunkCount() = %d, want 1 after replacement", got)
	}
	if got := s.CourseCount(); got != 1 {
		t.Errorf("CourseCount() = %d, want 1", got)
	}

	results, err := s.Search(ctx, "content", WithCourse("Mutable Course"))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	for _, r := range results {
		if r.Content != "new content" {
			t.Errorf("stale chunk survived replacement: %q", r.Content)
		}
	}

	outline, err := s.Outline(ctx, "Mutable Course")
	if err != nil {
		t.Fatalf("Outline() error: %v", err)
	}
	if len(outline.Lessons) != 1 || outline.Lessons[0].Title != "v2" {
		t.Errorf("outline not replaced: %+v", outline)
	}
}

func TestOutlineAndLessonLink(t *testing.T) {
	emb := newStubEmbedder()
	s := newTestStore(t, emb)
	ctx := context.Background()

	c := testCourse("Linked Course",
		course.Lesson{Number: 1, Title: "One", Link: "https://example.com/l1"},
		course.Lesson{Number: 2, Title: "Two"},
	)
	if err := s.UpsertCourse(ctx, c, nil); err != nil {
		t.Fatalf("UpsertCourse() error: %v", err)
	}

	outline, err := s.Outline(ctx, "Linked Course")
	if err != nil {
		t.Fatalf("Outline() error: %v", err)
	}
	if outline.Title != "Linked Course" || len(outline.Lessons) != 2 {
		t.Fatalf("outline = %+v", outline)
	}

	link, err := s.LessonLink(ctx, "Linked Course", 1)
	if err != nil {
		t.Fatalf("LessonLink() error: %v", err)
	}
	if link != "https://example.com/l1" {
		t.Errorf("LessonLink() = %q", link)
	}

	link, err = s.LessonLink(ctx, "Linked Course", 2)
	if err != nil {
		t.Fatalf("LessonLink() error: %v", err)
	}
	if link != "" {
		t.Errorf("lesson without link: got %q", link)
	}

	if _, err := s.Outline(ctx, "Ghost Course"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("Outline(unknown) err = %v, want ErrCourseNotFound", err)
	}
}

func TestCourseTitlesSorted(t *testing.T) {
	emb := newStubEmbedder()
	s := newTestStore(t, emb)
	ctx := context.Background()

	for _, title := range []string{"Zebra Studies", "Alpha Course", "Middle Path"} {
		if err := s.UpsertCourse(ctx, testCourse(title), nil); err != nil {
			t.Fatalf("UpsertCourse(%q) error: %v", title, err)
		}
	}

	got := s.CourseTitles()
	want := []string{"Alpha Course", "Middle Path", "Zebra Studies"}
	if !slices.Equal(got, want) {
		t.Errorf("CourseTitles() = %v, want %v", got, want)
	}
}
