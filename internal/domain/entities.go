package domain

import "time"

// Chunk is a language-tagged, line-bounded span of source text selected for
// indexing. A chunk id is stable for the lifetime of one ingestion run and is
// the unit addressed by postings, benchmark ground truth, and search hits.
type Chunk struct {
	ID          uint64
	Lang        string
	Path        string
	StartLine   int
	EndLine     int
	Text        string
	Identifiers []string
	Tokens      []string
	Meta        ChunkMetadata
}

type ChunkMetadata struct {
	ChunkID    uint64 `json:"chunk_id"`
	RepoID     string `json:"repo_id,omitempty"`
	Path       string `json:"path"`
	Lang       string `json:"lang"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TokenCount int    `json:"token_count"`
	Checksum   string `json:"checksum"`
}

// LexicalHit is a ranked search result. Results are ordered by descending
// score; ties break by ascending chunk id for determinism.
type LexicalHit struct {
	ChunkID uint64
	Score   float64
}

type Posting struct {
	ChunkID uint64 `json:"chunk_id"`
	TF      int    `json:"tf"`
}

// Stats holds corpus-level statistics needed for BM25 length normalization.
type Stats struct {
	TotalChunks int     `json:"total_chunks"`
	TotalTokens int     `json:"total_tokens"`
	AvgChunkLen float64 `json:"avg_chunk_len"`
}

// IngestStats summarizes one ingestion run. Chunk-level errors never abort
// the run; they are counted here instead.
type IngestStats struct {
	RunID         string
	ChunksIndexed int
	FilesIndexed  int
	Errors        int
	Duration      time.Duration
}

// Progress is a periodic observation emitted by the ingestion pipeline.
type Progress struct {
	ChunksIndexed int
	FilesIndexed  int
	Errors        int
	LastPath      string
}

type BenchmarkQuery struct {
	ID               string   `json:"id"`
	Query            string   `json:"query"`
	ExpectedChunkIDs []uint64 `json:"expected_chunk_ids"`
	K                int      `json:"k"`
}

// BenchmarkResult aggregates retrieval quality and speed for one mode.
// All ratio metrics lie in [0,1].
type BenchmarkResult struct {
	Mode            string        `json:"mode"`
	RecallAtK       float64       `json:"recall_at_k"`
	PrecisionAtK    float64       `json:"precision_at_k"`
	MRR             float64       `json:"mrr"`
	NDCG            float64       `json:"ndcg"`
	MedianLatencyMS float64       `json:"median_latency_ms"`
	ThroughputQPS   float64       `json:"throughput_qps"`
	TotalWallTime   time.Duration `json:"total_wall_time"`
	QueryCount      int           `json:"query_count"`
}

// SearchQuery is a validated, index-level query compiled from a user request.
type SearchQuery struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
	WholeWord     bool
}

type Match struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

type SearchResult struct {
	Path    string  `json:"path"`
	Matches []Match `json:"matches"`
}

func (r SearchResult) MatchCount() int {
	return len(r.Matches)
}

type SearchFilesResponse struct {
	Results      []SearchResult `json:"results"`
	TotalMatches int            `json:"total_matches"`
	Truncated    bool           `json:"truncated"`
}

// ReplaceOperation is one line-level edit. ByteOffset is informational only;
// the optimistic-concurrency check compares OldContent against the file's
// current line content at apply time.
type ReplaceOperation struct {
	Path       string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`
	ByteOffset int64  `json:"byte_offset"`
}

type ReplaceResult struct {
	FilesModified        int      `json:"files_modified"`
	OperationsSuccessful int      `json:"operations_successful"`
	OperationsFailed     int      `json:"operations_failed"`
	Errors               []string `json:"errors,omitempty"`
}

// FileMeta tracks per-file index staleness information.
type FileMeta struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	ChunkCount int       `json:"chunk_count"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// SearchExecuted is published once per surviving search result.
type SearchExecuted struct {
	FilePath     string
	MatchesFound int
}

// IndexHealth is the record shape accepted by telemetry sinks.
type IndexHealth struct {
	RunID                     string  `json:"run_id,omitempty"`
	IndexSizeBytes            uint64  `json:"index_size_bytes"`
	IndexBuildDurationSeconds float64 `json:"index_build_duration_seconds"`
}
