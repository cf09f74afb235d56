package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/storage"
)

func newTestSearcher(t *testing.T) (*Searcher, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return NewSearcher(store), store
}

func TestNewSearcher(t *testing.T) {
	searcher, store := newTestSearcher(t)
	if searcher == nil {
		t.Fatal("NewSearcher() returned nil")
	}
	if searcher.store != store {
		t.Error("NewSearcher() did not set store correctly")
	}
}

func TestSearcher_EmptyDatabase(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	results, err := searcher.Search("anything", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() in empty database returned %d results, want 0", len(results))
	}

	results, err = searcher.SearchWithFilters("anything", 10, storage.MessageFilter{Role: models.RoleUser})
	if err != nil {
		t.Fatalf("SearchWithFilters() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("SearchWithFilters() in empty database returned %d results, want 0", len(results))
	}
}

func TestSearcher_WithHistory(t *testing.T) {
	searcher, store := newTestSearcher(t)
	now := time.Now()
	history := []models.Message{
		{ID: "u1", Role: models.RoleUser, Content: "Is this GDPR compliant? (draft)", Timestamp: now},
		{ID: "a1", Role: models.RoleAssistant, Content: "The draft is GDPR compliant", Model: "llama-3", Timestamp: now},
		{ID: "u2", Role: models.RoleUser, Content: "summarise the handbook", Timestamp: now},
	}
	if err := store.SyncMessages(history); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		query  string
		filter storage.MessageFilter
		want   int
	}{
		{"single word", "gdpr", storage.MessageFilter{}, 2},
		{"all words required", "gdpr handbook", storage.MessageFilter{}, 0},
		{"punctuation is literal", "compliant?", storage.MessageFilter{}, 2},
		{"fts operators are literal", "draft OR handbook", storage.MessageFilter{}, 0},
		{"prefix", "summ*", storage.MessageFilter{}, 1},
		{"role filter", "gdpr", storage.MessageFilter{Role: models.RoleAssistant}, 1},
		{"model filter", "gdpr", storage.MessageFilter{Model: "gpt-4"}, 0},
		{"blank query", "   ", storage.MessageFilter{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := searcher.SearchWithFilters(tt.query, 10, tt.filter)
			if err != nil {
				t.Fatalf("SearchWithFilters(%q) error = %v", tt.query, err)
			}
			if len(results) != tt.want {
				t.Errorf("SearchWithFilters(%q) returned %d results, want %d", tt.query, len(results), tt.want)
			}
		})
	}
}

func TestMatchExpression(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"hello", `"hello"`},
		{"  two   words ", `"two" "words"`},
		{`say "hi"`, `"say" """hi"""`},
		{"pre*", `"pre"*`},
		{"*", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MatchExpression(tt.query); got != tt.want {
			t.Errorf("MatchExpression(%q) = %s, want %s", tt.query, got, tt.want)
		}
	}
}
