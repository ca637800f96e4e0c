package chunker

import (
	"regexp"
	"strings"
	"time"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

// Config controls chunk sizing
type Config struct {
	// MinChunkSize is the minimum characters for an emitted chunk.
	// Shorter fragments are treated as noise and discarded, unless the
	// document would otherwise produce no chunks at all.
	MinChunkSize int

	// MaxChunkSize is the upper bound before a section is split further
	// at sentence boundaries
	MaxChunkSize int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinChunkSize: 200,
		MaxChunkSize: 1000,
	}
}

// Chunker splits a raw document into ordered, size-bounded chunks.
// Pure transformation: no persistence side effects, deterministic for
// identical input.
type Chunker struct {
	cfg Config
}

// New creates a Chunker with the given config, falling back to defaults
// for unset fields
func New(cfg Config) *Chunker {
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultConfig().MinChunkSize
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultConfig().MaxChunkSize
	}
	if cfg.MaxChunkSize < cfg.MinChunkSize {
		cfg.MaxChunkSize = cfg.MinChunkSize
	}
	return &Chunker{cfg: cfg}
}

// Structural markers recognised as section boundaries
var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
	labeledHeading  = regexp.MustCompile(`(?i)^(?:chapter|article|section|part)\s+\d+[.:)]?\s*(.*?)\s*$`)
	decimalHeading  = regexp.MustCompile(`^\d+(?:\.\d+)*[.)]\s+(.+?)\s*$`)
	romanHeading    = regexp.MustCompile(`^[IVXLCDM]+[.)]\s+(.+?)\s*$`)
)

// headingText returns the heading text of a marker line, or "" if the line
// is not a structural marker
func headingText(line string) string {
	line = strings.TrimSpace(line)
	for _, re := range []*regexp.Regexp{markdownHeading, labeledHeading, decimalHeading, romanHeading} {
		if m := re.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				return m[1]
			}
			return line
		}
	}
	return ""
}

// section is an intermediate unit between marker detection and sizing
type section struct {
	heading string
	body    string
}

// Chunk splits a document into ordered chunks. Empty or whitespace-only
// input yields zero chunks.
func (c *Chunker) Chunk(doc *domain.Document) []*domain.Chunk {
	text := strings.TrimSpace(doc.RawContent)
	if text == "" {
		return nil
	}

	var pieces []piece
	sections := c.splitSections(text)
	if sections == nil {
		pieces = c.window(text)
	} else {
		pieces = c.sizeSections(sections)
	}

	now := time.Now()
	chunks := make([]*domain.Chunk, 0, len(pieces))
	for i, p := range pieces {
		title := p.heading
		if title == "" {
			title = doc.Title
		}
		chunks = append(chunks, &domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Index:      i,
			Title:      title,
			Section:    p.heading,
			Content:    p.content,
			CreatedAt:  now,
		})
	}
	return chunks
}

// piece is a sized candidate chunk
type piece struct {
	heading string
	content string
}

// splitSections groups the text into marker-delimited sections.
// Returns nil when the text has no recognisable structural markers,
// signalling the fixed-size windowing fallback.
func (c *Chunker) splitSections(text string) []section {
	lines := strings.Split(text, "\n")

	hasMarker := false
	for _, line := range lines {
		if headingText(line) != "" {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		return nil
	}

	var sections []section
	current := section{}
	var body []string

	flush := func() {
		current.body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.heading != "" || current.body != "" {
			sections = append(sections, current)
		}
		body = body[:0]
	}

	for _, line := range lines {
		if h := headingText(line); h != "" {
			flush()
			current = section{heading: h}
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// sizeSections turns sections into size-bounded pieces. Oversized sections
// are split at sentence boundaries; fragments below MinChunkSize are
// discarded unless discarding would leave the document with zero chunks.
func (c *Chunker) sizeSections(sections []section) []piece {
	var pieces []piece
	var lastDropped *piece

	for _, s := range sections {
		if s.body == "" {
			// a lone heading with no body is noise
			continue
		}
		for _, content := range c.splitBySize(s.body) {
			p := piece{heading: s.heading, content: content}
			if len(content) < c.cfg.MinChunkSize {
				lastDropped = &p
				continue
			}
			pieces = append(pieces, p)
		}
	}

	// No document silently disappears from the index: keep the final
	// remainder even when it is under the minimum.
	if len(pieces) == 0 && lastDropped != nil {
		pieces = append(pieces, *lastDropped)
	}
	return pieces
}

// splitBySize splits text into runs of at most MaxChunkSize characters,
// accumulating whole sentences. A single sentence longer than the bound is
// kept intact rather than truncated.
func (c *Chunker) splitBySize(text string) []string {
	if len(text) <= c.cfg.MaxChunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)
	var out []string
	var buf strings.Builder

	for _, s := range sentences {
		if buf.Len() > 0 && buf.Len()+1+len(s) > c.cfg.MaxChunkSize {
			out = append(out, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(s)
	}
	if buf.Len() > 0 {
		out = append(out, strings.TrimSpace(buf.String()))
	}
	return out
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		ch := text[i]
		if (ch == '.' || ch == '?' || ch == '!') && isSpace(text[i+1]) {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// window covers unstructured text with sequential, non-overlapping chunks.
// Cut points back off to the latest newline or sentence end inside the
// window, provided the back-off point is past half the maximum size; when
// neither exists the cut is a hard one at the bound.
func (c *Chunker) window(text string) []piece {
	var pieces []piece
	start := 0
	for start < len(text) {
		if len(text)-start <= c.cfg.MaxChunkSize {
			if content := strings.TrimSpace(text[start:]); content != "" {
				pieces = append(pieces, piece{content: content})
			}
			break
		}

		end := start + c.cfg.MaxChunkSize
		cut := end
		if back := backOffPoint(text, start, end); back > start+c.cfg.MaxChunkSize/2 {
			cut = back
		}
		if content := strings.TrimSpace(text[start:cut]); content != "" {
			pieces = append(pieces, piece{content: content})
		}
		start = cut
	}
	return pieces
}

// backOffPoint finds the position just after the latest newline or
// sentence-ending punctuation within text[start:end], or start if none
func backOffPoint(text string, start, end int) int {
	best := start
	for i := end - 1; i > start; i-- {
		ch := text[i]
		if ch == '\n' {
			best = i + 1
			break
		}
		if (ch == '.' || ch == '?' || ch == '!') && i+1 < len(text) && isSpace(text[i+1]) {
			best = i + 1
			break
		}
	}
	return best
}
