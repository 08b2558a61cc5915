package port

import "codesearch/internal/domain"

// ChunkSource walks a repository root and yields code chunks.
type ChunkSource interface {
	Open(root string) (ChunkStream, error)
}

// ChunkStream is a lazy, pull-based sequence of fallible chunks. Next returns
// io.EOF when the walk completes; a *domain.ChunkError marks a single bad
// item and the stream remains usable. Streams are not restartable mid-walk.
type ChunkStream interface {
	Next() (domain.Chunk, error)
	Close() error
}
