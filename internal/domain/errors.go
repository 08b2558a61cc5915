package domain

import "fmt"

// ChunkError is a per-item failure from a chunk stream. The ingestion
// pipeline counts these and continues; they are never fatal to a run.
type ChunkError struct {
	Path string
	Err  error
}

func (e *ChunkError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("chunk error in %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("chunk error: %v", e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ValidationError rejects a malformed request before any side effect occurs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FileError scopes a failure to one file's operation group. Other groups
// proceed independently.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
