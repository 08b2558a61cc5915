package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"codesearch/internal/domain"
	"codesearch/internal/port"
)

var (
	bucketChunks = []byte("chunks")
	bucketBlobs  = []byte("blobs")
	bucketTerms  = []byte("terms")
	bucketStats  = []byte("stats")
	bucketMeta   = []byte("file_meta")
	keyStats     = []byte("corpus_stats")
)

// DefaultFlushThreshold bounds the Writer's in-memory postings buffer.
const DefaultFlushThreshold = 512

// Writer is the sole mutable view of an index build. One logical owner calls
// Add until Commit, which flushes everything and yields a read-only Handle.
// A committed Writer rejects further Add calls.
type Writer struct {
	db        *bbolt.DB
	path      string
	tokenizer port.Tokenizer

	buffer    []bufferedChunk
	threshold int
	committed bool

	totalChunks int
	totalTokens int
}

type bufferedChunk struct {
	meta     domain.ChunkMetadata
	text     string
	termFreq map[string]int
	length   int
}

type storedChunk struct {
	domain.ChunkMetadata
	DocLen int `json:"doc_len"`
}

// NewWriter opens (or creates) index storage at path and returns a Writer
// owning it.
func NewWriter(path string, tokenizer port.Tokenizer) (*Writer, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketChunks, bucketBlobs, bucketTerms, bucketStats, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Writer{
		db:        db,
		path:      path,
		tokenizer: tokenizer,
		threshold: DefaultFlushThreshold,
	}, nil
}

// Add tokenizes the chunk's text and identifier list into terms and buffers
// the resulting postings. Fails only on storage I/O (during a flush) or when
// the Writer has already been committed.
func (w *Writer) Add(chunk domain.Chunk) error {
	if w.committed {
		return fmt.Errorf("index writer already committed")
	}

	var terms []string
	if len(chunk.Tokens) > 0 {
		terms = append(terms, chunk.Tokens...)
	} else {
		terms = append(terms, w.tokenizer.Tokenize(chunk.Text)...)
	}
	terms = append(terms, w.tokenizer.TokenizeIdentifiers(chunk.Identifiers)...)

	tf := make(map[string]int, len(terms))
	for _, term := range terms {
		tf[term]++
	}

	meta := chunk.Meta
	if meta.ChunkID == 0 && meta.Path == "" {
		meta = domain.ChunkMetadata{
			ChunkID:   chunk.ID,
			Path:      chunk.Path,
			Lang:      chunk.Lang,
			StartLine: chunk.StartLine,
			EndLine:   chunk.EndLine,
		}
	}
	meta.TokenCount = len(terms)

	w.buffer = append(w.buffer, bufferedChunk{
		meta:     meta,
		text:     chunk.Text,
		termFreq: tf,
		length:   len(terms),
	})
	w.totalChunks++
	w.totalTokens += len(terms)

	if len(w.buffer) >= w.threshold {
		return w.flush()
	}
	return nil
}

// flush writes all buffered chunks and postings in a single transaction.
func (w *Writer) flush() error {
	if len(w.buffer) == 0 {
		return nil
	}

	err := w.db.Update(func(tx *bbolt.Tx) error {
		chunksBucket := tx.Bucket(bucketChunks)
		blobsBucket := tx.Bucket(bucketBlobs)
		termsBucket := tx.Bucket(bucketTerms)

		merged := make(map[string][]domain.Posting)

		for _, bc := range w.buffer {
			stored := storedChunk{ChunkMetadata: bc.meta, DocLen: bc.length}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			key := chunkKey(bc.meta.ChunkID)
			if err := chunksBucket.Put(key, data); err != nil {
				return err
			}
			if err := blobsBucket.Put(key, []byte(bc.text)); err != nil {
				return err
			}
			for term, tf := range bc.termFreq {
				merged[term] = append(merged[term], domain.Posting{ChunkID: bc.meta.ChunkID, TF: tf})
			}
		}

		for term, newPostings := range merged {
			var existing []domain.Posting
			if data := termsBucket.Get([]byte(term)); data != nil {
				if err := json.Unmarshal(data, &existing); err != nil {
					return fmt.Errorf("corrupt postings for %q: %w", term, err)
				}
			}
			existing = append(existing, newPostings...)
			data, err := json.Marshal(existing)
			if err != nil {
				return err
			}
			if err := termsBucket.Put([]byte(term), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to flush postings: %w", err)
	}

	w.buffer = w.buffer[:0]
	return nil
}

// Commit flushes all buffered postings plus corpus statistics to durable
// storage and returns an immutable Handle over the result.
func (w *Writer) Commit() (*Handle, error) {
	if w.committed {
		return nil, fmt.Errorf("index writer already committed")
	}
	if err := w.flush(); err != nil {
		return nil, err
	}

	stats := domain.Stats{
		TotalChunks: w.totalChunks,
		TotalTokens: w.totalTokens,
	}
	if stats.TotalChunks > 0 {
		stats.AvgChunkLen = float64(stats.TotalTokens) / float64(stats.TotalChunks)
	}

	err := w.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit stats: %w", err)
	}

	w.committed = true
	return &Handle{
		db:        w.db,
		path:      w.path,
		tokenizer: w.tokenizer,
		stats:     stats,
		k1:        DefaultK1,
		b:         DefaultB,
	}, nil
}

// Close releases storage without committing. Pending buffered postings are
// discarded.
func (w *Writer) Close() error {
	if w.committed {
		return nil
	}
	return w.db.Close()
}

func chunkKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
