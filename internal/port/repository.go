package port

import "codesearch/internal/domain"

// IndexRepository executes index-level queries and tracks per-file staleness
// metadata keyed by path.
type IndexRepository interface {
	Search(query domain.SearchQuery) ([]domain.SearchResult, error)

	GetMeta(path string) (domain.FileMeta, error)

	UpdateMeta(meta domain.FileMeta) error

	RemoveMeta(path string) error
}
