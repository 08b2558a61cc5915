package usecase

import (
	"fmt"
	"strings"

	"codesearch/internal/adapter/cache"
	"codesearch/internal/domain"
	"codesearch/internal/port"
)

// SearchFilesRequest is the user-facing query: a literal or regex pattern
// with filters and an optional result ceiling.
type SearchFilesRequest struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
	WholeWord     bool
	PathFilter    string
	MaxResults    int
}

// SearchUseCase turns a user-facing query into a validated index query,
// applies post-filtering and truncation, and reports domain events.
type SearchUseCase struct {
	repo   port.IndexRepository
	events port.EventPublisher
	cache  *cache.QueryCache
}

func NewSearchUseCase(repo port.IndexRepository, events port.EventPublisher) *SearchUseCase {
	return &SearchUseCase{repo: repo, events: events}
}

func (u *SearchUseCase) WithCache(c *cache.QueryCache) *SearchUseCase {
	u.cache = c
	return u
}

// Execute validates, searches, filters, truncates, and publishes one
// SearchExecuted event per surviving result. Results removed by filtering or
// truncation emit no event.
func (u *SearchUseCase) Execute(req SearchFilesRequest) (*domain.SearchFilesResponse, error) {
	if strings.TrimSpace(req.Pattern) == "" {
		return nil, &domain.ValidationError{Field: "pattern", Reason: "must not be empty"}
	}

	query := domain.SearchQuery{
		Pattern:       req.Pattern,
		IsRegex:       req.IsRegex,
		CaseSensitive: req.CaseSensitive,
		WholeWord:     req.WholeWord,
	}

	// Fail on a malformed pattern before any index access.
	if _, err := domain.CompileSearchQuery(query); err != nil {
		return nil, err
	}

	if u.cache != nil {
		if resp, ok := u.cache.Get(query, req.PathFilter, req.MaxResults); ok {
			u.publish(resp.Results)
			return &resp, nil
		}
	}

	results, err := u.repo.Search(query)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	if req.PathFilter != "" {
		filtered := results[:0]
		for _, r := range results {
			if strings.Contains(r.Path, req.PathFilter) {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	truncated := false
	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
		truncated = true
	}

	totalMatches := 0
	for _, r := range results {
		totalMatches += r.MatchCount()
	}

	resp := domain.SearchFilesResponse{
		Results:      results,
		TotalMatches: totalMatches,
		Truncated:    truncated,
	}

	if u.cache != nil {
		u.cache.Put(query, req.PathFilter, req.MaxResults, resp)
	}

	u.publish(results)

	return &resp, nil
}

func (u *SearchUseCase) publish(results []domain.SearchResult) {
	if u.events == nil {
		return
	}
	for _, r := range results {
		u.events.Publish(domain.SearchExecuted{
			FilePath:     r.Path,
			MatchesFound: r.MatchCount(),
		})
	}
}
