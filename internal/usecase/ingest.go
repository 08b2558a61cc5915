package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"codesearch/internal/adapter/index"
	"codesearch/internal/domain"
	"codesearch/internal/port"
)

const (
	// DefaultBatchSize bounds memory between index writes.
	DefaultBatchSize = 256
	// DefaultProgressEvery is the chunk interval between progress emissions.
	DefaultProgressEvery = 1000
)

// ProgressFunc observes cumulative ingestion progress. It is a side effect,
// not a control-flow dependency.
type ProgressFunc func(p domain.Progress)

// IndexWriter is the slice of the index writer the pipeline needs. The
// writer is an exclusive resource: one logical owner per build.
type IndexWriter interface {
	Add(chunk domain.Chunk) error
	Commit() (*index.Handle, error)
}

// IngestUseCase drives a chunk stream to completion, writing into exactly
// one index Writer with bounded memory via batching.
type IngestUseCase struct {
	writer        IndexWriter
	metadataSink  port.MetadataSink
	telemetry     port.TelemetrySink
	batchSize     int
	progressEvery int
	progressFn    ProgressFunc

	flushHook func(batchLen int)
}

func NewIngestUseCase(writer IndexWriter) *IngestUseCase {
	return &IngestUseCase{
		writer:        writer,
		batchSize:     DefaultBatchSize,
		progressEvery: DefaultProgressEvery,
	}
}

func (u *IngestUseCase) WithMetadataSink(sink port.MetadataSink) *IngestUseCase {
	u.metadataSink = sink
	return u
}

func (u *IngestUseCase) WithTelemetry(sink port.TelemetrySink) *IngestUseCase {
	u.telemetry = sink
	return u
}

func (u *IngestUseCase) WithBatchSize(n int) *IngestUseCase {
	if n > 0 {
		u.batchSize = n
	}
	return u
}

func (u *IngestUseCase) WithProgress(every int, fn ProgressFunc) *IngestUseCase {
	if every > 0 {
		u.progressEvery = every
	}
	u.progressFn = fn
	return u
}

// Ingest consumes the stream until io.EOF, commits the index, and returns the
// run statistics plus the committed Handle. Chunk-level failures are counted
// and skipped; every successfully produced chunk reaches the writer exactly
// once, in stream order, before Ingest returns.
func (u *IngestUseCase) Ingest(ctx context.Context, stream port.ChunkStream) (*domain.IngestStats, *index.Handle, error) {
	start := time.Now()
	stats := &domain.IngestStats{RunID: uuid.NewString()}

	seenFiles := make(map[string]struct{})
	batch := make([]domain.Chunk, 0, u.batchSize)
	lastPath := ""

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, chunk := range batch {
			if err := u.writer.Add(chunk); err != nil {
				return fmt.Errorf("failed to add chunk %d: %w", chunk.ID, err)
			}
		}
		if u.flushHook != nil {
			u.flushHook(len(batch))
		}
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var chunkErr *domain.ChunkError
			if errors.As(err, &chunkErr) {
				stats.Errors++
				continue
			}
			return nil, nil, fmt.Errorf("chunk stream failed: %w", err)
		}

		if _, seen := seenFiles[chunk.Path]; !seen {
			seenFiles[chunk.Path] = struct{}{}
			stats.FilesIndexed++
		}
		lastPath = chunk.Path

		if u.metadataSink != nil {
			if err := u.metadataSink.PutChunkMetadata(chunk.Meta); err != nil {
				return nil, nil, fmt.Errorf("metadata sink failed: %w", err)
			}
		}

		batch = append(batch, chunk)
		stats.ChunksIndexed++

		if len(batch) >= u.batchSize {
			if err := flush(); err != nil {
				return nil, nil, err
			}
		}

		if u.progressFn != nil && stats.ChunksIndexed%u.progressEvery == 0 {
			u.progressFn(domain.Progress{
				ChunksIndexed: stats.ChunksIndexed,
				FilesIndexed:  stats.FilesIndexed,
				Errors:        stats.Errors,
				LastPath:      lastPath,
			})
		}
	}

	if err := flush(); err != nil {
		return nil, nil, err
	}

	handle, err := u.writer.Commit()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to commit index: %w", err)
	}

	stats.Duration = time.Since(start)

	if u.telemetry != nil {
		size, err := handle.SizeBytes()
		if err == nil {
			err = u.telemetry.RecordIndexHealth(domain.IndexHealth{
				RunID:                     stats.RunID,
				IndexSizeBytes:            size,
				IndexBuildDurationSeconds: stats.Duration.Seconds(),
			})
		}
		if err != nil {
			// Observability must never abort a successful indexing run.
			fmt.Fprintf(os.Stderr, "warning: index health telemetry failed: %v\n", err)
		}
	}

	return stats, handle, nil
}
