package chunker

import (
	"strings"
	"testing"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

func doc(id, title, content string) *domain.Document {
	return &domain.Document{ID: id, Title: title, RawContent: content}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := New(DefaultConfig())

	if got := c.Chunk(doc("d1", "Empty", "")); len(got) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(got))
	}
	if got := c.Chunk(doc("d1", "Blank", "   \n\t  ")); len(got) != 0 {
		t.Errorf("expected 0 chunks for whitespace content, got %d", len(got))
	}
}

func TestChunkStructuredDocument(t *testing.T) {
	c := New(Config{MinChunkSize: 5, MaxChunkSize: 1000})

	content := "## Rentals\n" +
		"Wheelchairs may be rented for up to 90 days. A deposit is required.\n" +
		"## Repairs\n" +
		"Repairs are subsidized up to 100,000 won per device per year."

	chunks := c.Chunk(doc("doc-1", "Device Policy", content))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	if chunks[0].Section != "Rentals" {
		t.Errorf("expected section Rentals, got %q", chunks[0].Section)
	}
	if chunks[0].Title != "Rentals" {
		t.Errorf("expected title Rentals, got %q", chunks[0].Title)
	}
	if !strings.Contains(chunks[0].Content, "rented for up to 90 days") {
		t.Errorf("unexpected first chunk content: %q", chunks[0].Content)
	}
	if chunks[1].Section != "Repairs" {
		t.Errorf("expected section Repairs, got %q", chunks[1].Section)
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if chunk.ID != domain.ChunkID("doc-1", i) {
			t.Errorf("chunk %d has ID %q", i, chunk.ID)
		}
		if chunk.DocumentID != "doc-1" {
			t.Errorf("chunk %d has document ID %q", i, chunk.DocumentID)
		}
	}
}

func TestChunkRecognisesHeadingStyles(t *testing.T) {
	tests := []struct {
		name    string
		heading string
		section string
	}{
		{"markdown", "## Budget Rules", "Budget Rules"},
		{"article", "Article 3: Allocations", "Allocations"},
		{"decimal", "2.1. Eligibility", "Eligibility"},
		{"roman", "IV. Appeals", "Appeals"},
	}

	c := New(Config{MinChunkSize: 5, MaxChunkSize: 1000})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := tt.heading + "\nThe body of this section has enough text."
			chunks := c.Chunk(doc("d", "T", content))
			if len(chunks) != 1 {
				t.Fatalf("expected 1 chunk, got %d", len(chunks))
			}
			if chunks[0].Section != tt.section {
				t.Errorf("expected section %q, got %q", tt.section, chunks[0].Section)
			}
		})
	}
}

func TestChunkUnstructuredFallsBackToWindowing(t *testing.T) {
	c := New(Config{MinChunkSize: 10, MaxChunkSize: 100})

	// No structural markers: sentences of ~30 chars each
	sentence := "The quick brown fox jumps over. "
	content := strings.TrimSpace(strings.Repeat(sentence, 20))

	chunks := c.Chunk(doc("d", "Unstructured", content))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windowed chunks, got %d", len(chunks))
	}

	// Every chunk is bounded and uses the document title
	var total int
	for i, chunk := range chunks {
		if len(chunk.Content) > 100 {
			t.Errorf("chunk %d exceeds max size: %d chars", i, len(chunk.Content))
		}
		if chunk.Title != "Unstructured" {
			t.Errorf("chunk %d title %q, want document title", i, chunk.Title)
		}
		if chunk.Section != "" {
			t.Errorf("chunk %d has section %q for unstructured text", i, chunk.Section)
		}
		total += len(chunk.Content)
	}

	// Windowing trims boundary whitespace but never drops text
	stripped := strings.ReplaceAll(content, " ", "")
	var rebuilt strings.Builder
	for _, chunk := range chunks {
		rebuilt.WriteString(strings.ReplaceAll(chunk.Content, " ", ""))
	}
	if rebuilt.String() != stripped {
		t.Error("windowed chunks do not cover the full document text")
	}
}

func TestChunkWindowHardCutWithoutBoundaries(t *testing.T) {
	c := New(Config{MinChunkSize: 1, MaxChunkSize: 50})

	// One unbroken run with no spaces, newlines or punctuation
	content := strings.Repeat("a", 120)
	chunks := c.Chunk(doc("d", "Run", content))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 hard-cut chunks, got %d", len(chunks))
	}
	if len(chunks[0].Content) != 50 || len(chunks[1].Content) != 50 || len(chunks[2].Content) != 20 {
		t.Errorf("unexpected chunk sizes: %d, %d, %d",
			len(chunks[0].Content), len(chunks[1].Content), len(chunks[2].Content))
	}
}

func TestChunkOversizedSectionSplitsAtSentences(t *testing.T) {
	c := New(Config{MinChunkSize: 10, MaxChunkSize: 120})

	var body strings.Builder
	for i := 0; i < 10; i++ {
		body.WriteString("Each rental request must be reviewed by staff. ")
	}
	content := "## Rentals\n" + strings.TrimSpace(body.String())

	chunks := c.Chunk(doc("d", "Policy", content))
	if len(chunks) < 2 {
		t.Fatalf("expected the section to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Content) > 120 {
			t.Errorf("chunk %d exceeds max size: %d", i, len(chunk.Content))
		}
		if chunk.Section != "Rentals" {
			t.Errorf("chunk %d lost its section heading", i)
		}
		if !strings.HasSuffix(chunk.Content, ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, chunk.Content)
		}
	}
}

func TestChunkOversizedSingleSentenceKeptIntact(t *testing.T) {
	c := New(Config{MinChunkSize: 10, MaxChunkSize: 50})

	sentence := "This single sentence runs well past the configured maximum chunk size without a break."
	content := "## Terms\n" + sentence + " Short tail."

	chunks := c.Chunk(doc("d", "Policy", content))
	found := false
	for _, chunk := range chunks {
		if chunk.Content == sentence {
			found = true
		}
	}
	if !found {
		t.Error("expected the oversized sentence to survive untruncated")
	}
}

func TestChunkDiscardsSmallFragmentsButNeverAllOfThem(t *testing.T) {
	c := New(Config{MinChunkSize: 200, MaxChunkSize: 1000})

	// Every section body is below the minimum
	content := "## A\ntiny\n## B\nalso tiny"
	chunks := c.Chunk(doc("d", "Small", content))
	if len(chunks) != 1 {
		t.Fatalf("expected the last fragment to be kept, got %d chunks", len(chunks))
	}

	// Heading-only document yields nothing
	if got := c.Chunk(doc("d", "Only", "## Heading One\n## Heading Two")); len(got) != 0 {
		t.Errorf("expected 0 chunks for heading-only document, got %d", len(got))
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := New(Config{MinChunkSize: 10, MaxChunkSize: 200})
	content := "## One\nFirst section body with some sentences. More text here.\n" +
		"## Two\nSecond section body, also long enough to keep."

	a := c.Chunk(doc("d", "T", content))
	b := c.Chunk(doc("d", "T", content))

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Content != b[i].Content || a[i].Section != b[i].Section {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
