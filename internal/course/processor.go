package course

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedDocument indicates a course file whose mandatory header fields
// could not be parsed. Callers ingesting a batch of files should skip the
// offending file and continue.
var ErrMalformedDocument = errors.New("malformed course document")

// Default chunking parameters, chosen to keep chunks inside typical embedding
// model token limits while preserving enough context per chunk.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
)

// Header line prefixes of the course file format.
const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Link:"
	instructorPrefix = "Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// lessonMarker matches lesson headers such as "Lesson 3: Tool calling".
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Processor parses course material files and splits lesson bodies into
// overlapping chunks. A Processor is immutable and safe for concurrent use.
type Processor struct {
	chunkSize int
	overlap   int
}

// NewProcessor creates a Processor with the given chunk size and overlap in
// characters. Non-positive values fall back to the defaults; an overlap that
// is not smaller than the chunk size is clamped to the default ratio.
func NewProcessor(chunkSize, overlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 8
	}
	return &Processor{chunkSize: chunkSize, overlap: overlap}
}

// Process parses one course file and returns the course plus the chunks of
// all its lessons. Processing is deterministic: identical input yields
// byte-identical output.
//
// Returns ErrMalformedDocument (wrapped) when the "Course Title:" header is
// missing. A lesson with an empty body yields zero chunks, not an error.
func (p *Processor) Process(text string) (Course, []Chunk, error) {
	c, err := p.parse(text)
	if err != nil {
		return Course{}, nil, err
	}

	var chunks []Chunk
	for _, lesson := range c.Lessons {
		for i, span := range p.split(lesson.Body) {
			chunks = append(chunks, Chunk{
				CourseTitle:  c.Title,
				LessonNumber: lesson.Number,
				Index:        i,
				Text:         span,
			})
		}
	}
	return c, chunks, nil
}

// parse reads the header lines and splits the remainder into lessons.
// Everything between one lesson marker and the next (or end of input)
// belongs to that lesson's body.
func (p *Processor) parse(text string) (Course, error) {
	lines := strings.Split(text, "\n")

	c := Course{}
	i := 0

	// Header: title (required), link and instructor (optional), read until
	// the first lesson marker.
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if lessonMarker.MatchString(line) {
			break
		}
		switch {
		case strings.HasPrefix(line, titlePrefix):
			c.Title = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, linkPrefix):
			c.Link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		case strings.HasPrefix(line, instructorPrefix):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
		}
	}

	if c.Title == "" {
		return Course{}, fmt.Errorf("%w: missing %q header", ErrMalformedDocument, titlePrefix)
	}

	// Lessons.
	var current *Lesson
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		c.Lessons = append(c.Lessons, *current)
		current = nil
		body = nil
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			num, err := strconv.Atoi(m[1])
			if err != nil {
				// Unreachable with the \d+ pattern, kept for safety.
				return Course{}, fmt.Errorf("%w: bad lesson number %q", ErrMalformedDocument, m[1])
			}
			current = &Lesson{Number: num, Title: strings.TrimSpace(m[2])}
			continue
		}

		// Optional lesson link on the line directly after the marker.
		if current != nil && len(body) == 0 && strings.HasPrefix(trimmed, lessonLinkPrefix) {
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, lessonLinkPrefix))
			continue
		}

		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return c, nil
}

// split cuts text into overlapping windows of chunkSize characters,
// advancing by chunkSize-overlap. When a window would cut mid-word, the
// boundary backs off to the last whitespace in the window, provided that
// still makes forward progress past the overlap region.
//
// Offsets are counted in runes, not bytes, so a boundary can never land
// inside a multi-byte character and every chunk is valid UTF-8.
//
// Invariant: chunks[0] + chunks[1][overlap:] + ... reconstructs text exactly
// (slicing in runes). An empty text yields zero chunks.
func (p *Processor) split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + p.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		if cut := lastWhitespace(runes[start:end]); cut > p.overlap {
			end = start + cut
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end - p.overlap
	}
	return chunks
}

// lastWhitespace returns the index just after the last whitespace rune, or
// -1 when the window contains no whitespace.
func lastWhitespace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return -1
}
