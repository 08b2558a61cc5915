package usecase

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"codesearch/internal/domain"
)

const (
	// DefaultMaxFileSize is the per-file ceiling for replace operations.
	DefaultMaxFileSize = 10 << 20 // 10 MiB
	// DefaultBackupSuffix is appended to the original path.
	DefaultBackupSuffix = ".bak"
)

// ReplaceEngine applies line-level edits across many files with
// optimistic-concurrency validation and backup-before-mutate semantics.
// Distinct files are processed in parallel; operations within one file are
// applied serially in the order given.
type ReplaceEngine struct {
	maxFileSize  int64
	backups      bool
	backupSuffix string
	parallelism  int
}

func NewReplaceEngine() *ReplaceEngine {
	return &ReplaceEngine{
		maxFileSize:  DefaultMaxFileSize,
		backups:      true,
		backupSuffix: DefaultBackupSuffix,
		parallelism:  4,
	}
}

func (e *ReplaceEngine) WithMaxFileSize(n int64) *ReplaceEngine {
	if n > 0 {
		e.maxFileSize = n
	}
	return e
}

func (e *ReplaceEngine) WithBackups(enabled bool, suffix string) *ReplaceEngine {
	e.backups = enabled
	if suffix != "" {
		e.backupSuffix = suffix
	}
	return e
}

func (e *ReplaceEngine) WithParallelism(n int) *ReplaceEngine {
	if n > 0 {
		e.parallelism = n
	}
	return e
}

// Validate checks line numbers and size ceilings without touching file
// contents, for callers that want fail-fast feedback before committing to a
// batch.
func (e *ReplaceEngine) Validate(operations []domain.ReplaceOperation) error {
	for _, op := range operations {
		if op.LineNumber < 1 {
			return &domain.ValidationError{
				Field:  "line_number",
				Reason: fmt.Sprintf("must be >= 1, got %d for %s", op.LineNumber, op.Path),
			}
		}
	}

	checked := make(map[string]struct{})
	for _, op := range operations {
		if _, done := checked[op.Path]; done {
			continue
		}
		checked[op.Path] = struct{}{}

		info, err := os.Stat(op.Path)
		if err != nil {
			return &domain.FileError{Path: op.Path, Err: err}
		}
		if info.Size() > e.maxFileSize {
			return &domain.FileError{
				Path: op.Path,
				Err:  fmt.Errorf("file size %d exceeds limit %d", info.Size(), e.maxFileSize),
			}
		}
	}
	return nil
}

type fileOutcome struct {
	path     string
	applied  int
	skipped  int
	modified bool
	err      error
	opCount  int
}

// Execute groups operations by target file and applies each group
// independently. A mismatched line is a silent skip, not an error; a file
// that cannot be read, is oversized, or cannot be written fails its whole
// group. The aggregate result is best-effort, never first-failure-aborts.
func (e *ReplaceEngine) Execute(ctx context.Context, operations []domain.ReplaceOperation) (*domain.ReplaceResult, error) {
	groups := make(map[string][]domain.ReplaceOperation)
	for _, op := range operations {
		groups[op.Path] = append(groups[op.Path], op)
	}

	paths := make([]string, 0, len(groups))
	for path := range groups {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	outcomes := make([]fileOutcome, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.applyFile(path, groups[path])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.ReplaceResult{}
	for _, out := range outcomes {
		if out.err != nil {
			result.OperationsFailed += out.opCount
			result.Errors = append(result.Errors, (&domain.FileError{Path: out.path, Err: out.err}).Error())
			continue
		}
		result.OperationsSuccessful += out.applied
		if out.modified {
			result.FilesModified++
		}
	}
	return result, nil
}

// applyFile resolves one file's operations in memory, then rewrites the file
// once. The file is never partially written: either all resolved edits land
// in a single write, or nothing is touched.
func (e *ReplaceEngine) applyFile(path string, ops []domain.ReplaceOperation) fileOutcome {
	out := fileOutcome{path: path, opCount: len(ops)}

	info, err := os.Stat(path)
	if err != nil {
		out.err = err
		return out
	}
	if info.Size() > e.maxFileSize {
		out.err = fmt.Errorf("file size %d exceeds limit %d", info.Size(), e.maxFileSize)
		return out
	}

	data, err := os.ReadFile(path)
	if err != nil {
		out.err = err
		return out
	}

	if e.backups {
		backupPath := path + e.backupSuffix
		if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
			out.err = fmt.Errorf("failed to write backup: %w", err)
			return out
		}
	}

	lines := strings.Split(string(data), "\n")

	for _, op := range ops {
		idx := op.LineNumber - 1
		if idx < 0 || idx >= len(lines) {
			out.skipped++
			continue
		}
		// Optimistic-concurrency check: apply only while the observed
		// content still matches.
		if lines[idx] != op.OldContent {
			out.skipped++
			continue
		}
		lines[idx] = op.NewContent
		out.applied++
	}

	if out.applied == 0 {
		return out
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		out.err = fmt.Errorf("failed to rewrite file: %w", err)
		out.applied = 0
		return out
	}
	out.modified = true
	return out
}
