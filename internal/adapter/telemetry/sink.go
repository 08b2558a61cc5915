package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"codesearch/internal/domain"
)

// FileSink appends index-health records as JSON lines.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) RecordIndexHealth(health domain.IndexHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(health)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open telemetry file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

// LogSink prints index-health records to stderr. Useful when no telemetry
// file is configured.
type LogSink struct{}

func (LogSink) RecordIndexHealth(health domain.IndexHealth) error {
	_, err := fmt.Fprintf(os.Stderr, "index health: size=%d bytes, build=%.2fs\n",
		health.IndexSizeBytes, health.IndexBuildDurationSeconds)
	return err
}
