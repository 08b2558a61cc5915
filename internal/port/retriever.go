package port

import "codesearch/internal/domain"

// Retriever searches a committed index and returns the top-k ranked hits.
type Retriever interface {
	Search(query string, k int) ([]domain.LexicalHit, error)
}
