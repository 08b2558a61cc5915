package repo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.etcd.io/bbolt"

	"codesearch/internal/adapter/index"
	"codesearch/internal/domain"
)

var bucketMeta = []byte("file_meta")

// Repository answers literal/regex queries by scanning the chunk texts of a
// committed index handle, and tracks per-file staleness metadata in a bucket
// alongside the index.
type Repository struct {
	handle *index.Handle
}

func New(handle *index.Handle) *Repository {
	return &Repository{handle: handle}
}

// Search compiles the query and scans every stored chunk, merging matches
// per file. Overlapping chunks of the same file dedupe by line number.
func (r *Repository) Search(query domain.SearchQuery) ([]domain.SearchResult, error) {
	re, err := domain.CompileSearchQuery(query)
	if err != nil {
		return nil, err
	}

	type fileMatches struct {
		lines map[int]string
	}
	byFile := make(map[string]*fileMatches)

	err = r.handle.ForEachChunk(func(meta domain.ChunkMetadata, text string) error {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			fm, ok := byFile[meta.Path]
			if !ok {
				fm = &fileMatches{lines: make(map[int]string)}
				byFile[meta.Path] = fm
			}
			fm.lines[meta.StartLine+i] = line
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(byFile))
	for path := range byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	results := make([]domain.SearchResult, 0, len(paths))
	for _, path := range paths {
		fm := byFile[path]
		lineNums := make([]int, 0, len(fm.lines))
		for n := range fm.lines {
			lineNums = append(lineNums, n)
		}
		sort.Ints(lineNums)

		matches := make([]domain.Match, 0, len(lineNums))
		for _, n := range lineNums {
			matches = append(matches, domain.Match{Line: n, Text: fm.lines[n]})
		}
		results = append(results, domain.SearchResult{Path: path, Matches: matches})
	}

	return results, nil
}

func (r *Repository) GetMeta(path string) (domain.FileMeta, error) {
	var meta domain.FileMeta
	err := r.handle.DB().View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)
		if bucket == nil {
			return fmt.Errorf("file metadata not found: %s", path)
		}
		data := bucket.Get([]byte(path))
		if data == nil {
			return fmt.Errorf("file metadata not found: %s", path)
		}
		return json.Unmarshal(data, &meta)
	})
	return meta, err
}

func (r *Repository) UpdateMeta(meta domain.FileMeta) error {
	return r.handle.DB().Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(meta.Path), data)
	})
}

func (r *Repository) RemoveMeta(path string) error {
	return r.handle.DB().Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(path))
	})
}
