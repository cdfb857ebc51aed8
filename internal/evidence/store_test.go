package evidence

import (
	"testing"

	"github.com/kestrelab/inquest/internal/research"
)

func TestInsert_DeduplicatesByKey(t *testing.T) {
	t.Parallel()

	s := NewStore()
	a := research.Evidence{SourceID: "tavily", Title: "A", URL: "https://example.com/a"}
	b := research.Evidence{SourceID: "brave", Title: "B", URL: "https://example.com/b"}

	added := s.Insert(a, b)
	if len(added) != 2 {
		t.Fatalf("first insert added %d, want 2", len(added))
	}

	// Same source+URL with a different title is still a duplicate.
	dup := a
	dup.Title = "A, revisited"
	added = s.Insert(dup, b)
	if len(added) != 0 {
		t.Fatalf("duplicate insert added %d, want 0", len(added))
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}

func TestInsert_SameURLDifferentSourceIsDistinct(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Insert(
		research.Evidence{SourceID: "tavily", URL: "https://example.com"},
		research.Evidence{SourceID: "brave", URL: "https://example.com"},
	)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if s.SourceCount() != 2 {
		t.Fatalf("SourceCount = %d, want 2", s.SourceCount())
	}
}

func TestKey_FallsBackToContentHashWithoutURL(t *testing.T) {
	t.Parallel()

	s := NewStore()
	added := s.Insert(
		research.Evidence{SourceID: "duckduckgo", Snippet: "first finding"},
		research.Evidence{SourceID: "duckduckgo", Snippet: "second finding"},
		research.Evidence{SourceID: "duckduckgo", Snippet: "first finding"},
	)
	if len(added) != 2 {
		t.Fatalf("added %d, want 2", len(added))
	}
}

func TestSample_ReturnsMostRecent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		s.Insert(research.Evidence{SourceID: "tavily", URL: u})
	}

	sample := s.Sample(2)
	if len(sample) != 2 {
		t.Fatalf("Sample(2) returned %d items", len(sample))
	}
	if sample[0].URL != "u3" || sample[1].URL != "u4" {
		t.Fatalf("Sample(2) = %q,%q, want u3,u4", sample[0].URL, sample[1].URL)
	}

	if got := s.Sample(100); len(got) != 4 {
		t.Fatalf("Sample(100) returned %d, want all 4", len(got))
	}
	if got := s.Sample(0); got != nil {
		t.Fatalf("Sample(0) = %v, want nil", got)
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Insert(research.Evidence{SourceID: "tavily", URL: "u1", Title: "original"})

	items := s.Items()
	items[0].Title = "mutated"

	if s.Items()[0].Title != "original" {
		t.Fatal("mutating the returned slice leaked into the store")
	}
}
