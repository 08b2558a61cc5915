package cache

import (
	"crypto/sha256"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"codesearch/internal/domain"
)

// QueryCache memoizes search responses keyed by the full request. Entries
// expire after a TTL and are invalidated wholesale when the index generation
// advances (a new build or reopen).
type QueryCache struct {
	entries  *lru.Cache[[32]byte, *entry]
	ttl      time.Duration
	indexGen atomic.Uint64
}

type entry struct {
	response  domain.SearchFilesResponse
	createdAt time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) (*QueryCache, error) {
	if maxSize <= 0 {
		maxSize = 128
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	entries, err := lru.New[[32]byte, *entry](maxSize)
	if err != nil {
		return nil, err
	}
	return &QueryCache{entries: entries, ttl: ttl}, nil
}

func key(q domain.SearchQuery, pathFilter string, maxResults int) [32]byte {
	data := make([]byte, 0, len(q.Pattern)+len(pathFilter)+8)
	data = append(data, q.Pattern...)
	data = append(data, 0)
	data = append(data, pathFilter...)
	data = append(data, 0, boolByte(q.IsRegex), boolByte(q.CaseSensitive), boolByte(q.WholeWord))
	data = append(data, byte(maxResults>>24), byte(maxResults>>16), byte(maxResults>>8), byte(maxResults))
	return sha256.Sum256(data)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *QueryCache) Get(q domain.SearchQuery, pathFilter string, maxResults int) (domain.SearchFilesResponse, bool) {
	e, ok := c.entries.Get(key(q, pathFilter, maxResults))
	if !ok {
		return domain.SearchFilesResponse{}, false
	}
	if time.Since(e.createdAt) > c.ttl || e.indexGen != c.indexGen.Load() {
		c.entries.Remove(key(q, pathFilter, maxResults))
		return domain.SearchFilesResponse{}, false
	}
	return e.response, true
}

func (c *QueryCache) Put(q domain.SearchQuery, pathFilter string, maxResults int, resp domain.SearchFilesResponse) {
	c.entries.Add(key(q, pathFilter, maxResults), &entry{
		response:  resp,
		createdAt: time.Now(),
		indexGen:  c.indexGen.Load(),
	})
}

// Invalidate advances the index generation, expiring every cached response.
func (c *QueryCache) Invalidate() {
	c.indexGen.Add(1)
}
