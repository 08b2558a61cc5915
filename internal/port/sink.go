package port

import "codesearch/internal/domain"

// EventPublisher announces domain events, fire-and-forget.
type EventPublisher interface {
	Publish(event domain.SearchExecuted)
}

// TelemetrySink accepts index-health records. Emission failures must be
// treated as non-fatal by callers.
type TelemetrySink interface {
	RecordIndexHealth(health domain.IndexHealth) error
}

// MetadataSink receives each successfully ingested chunk's metadata.
type MetadataSink interface {
	PutChunkMetadata(meta domain.ChunkMetadata) error
}
