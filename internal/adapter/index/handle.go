package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"go.etcd.io/bbolt"

	"codesearch/internal/domain"
	"codesearch/internal/port"
)

// Conventional BM25 constants.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Handle is a read-only view over committed index storage. It never changes
// underlying postings and is safe for any number of concurrent searchers.
type Handle struct {
	db        *bbolt.DB
	path      string
	tokenizer port.Tokenizer
	stats     domain.Stats
	k1        float64
	b         float64
}

// Open recovers a Handle from existing durable storage without a Writer.
func Open(path string, tokenizer port.Tokenizer) (*Handle, error) {
	// Opened read-write: postings stay immutable by contract, but the
	// file-metadata bucket shared with the repository adapter is not.
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index db: %w", err)
	}

	var stats domain.Stats
	err = db.View(func(tx *bbolt.Tx) error {
		statsBucket := tx.Bucket(bucketStats)
		if statsBucket == nil {
			return fmt.Errorf("malformed index: stats bucket missing")
		}
		data := statsBucket.Get(keyStats)
		if data == nil {
			return fmt.Errorf("malformed index: corpus stats missing")
		}
		return json.Unmarshal(data, &stats)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Handle{
		db:        db,
		path:      path,
		tokenizer: tokenizer,
		stats:     stats,
		k1:        DefaultK1,
		b:         DefaultB,
	}, nil
}

// SetParams overrides the BM25 constants before the Handle is shared.
func (h *Handle) SetParams(k1, b float64) {
	h.k1 = k1
	h.b = b
}

// Search tokenizes the query the same way indexing does, scores candidate
// chunks with BM25, and returns the top k hits sorted by descending score,
// ties broken by ascending chunk id. An empty result is not an error.
func (h *Handle) Search(query string, k int) ([]domain.LexicalHit, error) {
	queryTokens := h.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 || h.stats.TotalChunks == 0 || k <= 0 {
		return nil, nil
	}

	scores := make(map[uint64]float64)
	docLens := make(map[uint64]int)

	err := h.db.View(func(tx *bbolt.Tx) error {
		termsBucket := tx.Bucket(bucketTerms)
		chunksBucket := tx.Bucket(bucketChunks)

		N := float64(h.stats.TotalChunks)
		avgDl := h.stats.AvgChunkLen
		if avgDl <= 0 {
			avgDl = 1
		}

		for _, term := range queryTokens {
			data := termsBucket.Get([]byte(term))
			if data == nil {
				continue
			}
			var postings []domain.Posting
			if err := json.Unmarshal(data, &postings); err != nil {
				return fmt.Errorf("corrupt postings for %q: %w", term, err)
			}

			n := float64(len(postings))
			idf := math.Log((N-n+0.5)/(n+0.5) + 1)

			for _, posting := range postings {
				dl, ok := docLens[posting.ChunkID]
				if !ok {
					stored, err := readChunk(chunksBucket, posting.ChunkID)
					if err != nil {
						return err
					}
					dl = stored.DocLen
					docLens[posting.ChunkID] = dl
				}

				tf := float64(posting.TF)
				scores[posting.ChunkID] += idf * (tf * (h.k1 + 1)) / (tf + h.k1*(1-h.b+h.b*float64(dl)/avgDl))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits := make([]domain.LexicalHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, domain.LexicalHit{ChunkID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Chunk returns the stored metadata and text for one chunk id.
func (h *Handle) Chunk(id uint64) (domain.ChunkMetadata, string, error) {
	var meta domain.ChunkMetadata
	var text string
	err := h.db.View(func(tx *bbolt.Tx) error {
		stored, err := readChunk(tx.Bucket(bucketChunks), id)
		if err != nil {
			return err
		}
		meta = stored.ChunkMetadata
		text = string(tx.Bucket(bucketBlobs).Get(chunkKey(id)))
		return nil
	})
	return meta, text, err
}

// ForEachChunk visits every stored chunk in ascending id order.
func (h *Handle) ForEachChunk(fn func(meta domain.ChunkMetadata, text string) error) error {
	return h.db.View(func(tx *bbolt.Tx) error {
		blobsBucket := tx.Bucket(bucketBlobs)
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var stored storedChunk
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt chunk %d: %w", binary.BigEndian.Uint64(k), err)
			}
			return fn(stored.ChunkMetadata, string(blobsBucket.Get(k)))
		})
	})
}

// Stats returns the committed corpus statistics.
func (h *Handle) Stats() domain.Stats {
	return h.stats
}

// SizeBytes reports the on-disk size of the index for health telemetry.
func (h *Handle) SizeBytes() (uint64, error) {
	info, err := os.Stat(h.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat index: %w", err)
	}
	return uint64(info.Size()), nil
}

// DB exposes the underlying database for adapters sharing the same file.
func (h *Handle) DB() *bbolt.DB {
	return h.db
}

func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Close() error {
	return h.db.Close()
}

func readChunk(bucket *bbolt.Bucket, id uint64) (storedChunk, error) {
	var stored storedChunk
	data := bucket.Get(chunkKey(id))
	if data == nil {
		return stored, fmt.Errorf("chunk not found: %d", id)
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return stored, fmt.Errorf("corrupt chunk %d: %w", id, err)
	}
	return stored, nil
}
