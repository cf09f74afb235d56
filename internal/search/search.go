// Package search queries the stored chat history by free text.
package search

import (
	"strings"

	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/storage"
)

type Searcher struct {
	store *storage.SQLiteStore
}

func NewSearcher(store *storage.SQLiteStore) *Searcher {
	return &Searcher{store: store}
}

// Search matches every word of query, in any order.
func (s *Searcher) Search(query string, limit int) ([]models.SearchResult, error) {
	return s.SearchWithFilters(query, limit, storage.MessageFilter{})
}

func (s *Searcher) SearchWithFilters(query string, limit int, filter storage.MessageFilter) ([]models.SearchResult, error) {
	match := MatchExpression(query)
	if match == "" {
		return nil, nil
	}
	return s.store.SearchMessages(match, limit, filter)
}

// MatchExpression turns user text into an FTS5 expression with each word
// quoted, so operators and punctuation in the input are matched literally.
// A trailing * on a word keeps prefix matching.
func MatchExpression(query string) string {
	var terms []string
	for _, word := range strings.Fields(query) {
		prefix := strings.HasSuffix(word, "*")
		word = strings.TrimRight(word, "*")
		if word == "" {
			continue
		}
		term := `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}
