package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codesearch/internal/domain"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestExecuteAppliesMatchingSkipsStale(t *testing.T) {
	dir := t.TempDir()
	original := "line one\nline two\nline three"
	path := writeTestFile(t, dir, "f.txt", original)

	ops := []domain.ReplaceOperation{
		{Path: path, LineNumber: 2, OldContent: "line two", NewContent: "LINE TWO"},
		{Path: path, LineNumber: 3, OldContent: "stale view of line three", NewContent: "nope"},
	}

	result, err := NewReplaceEngine().Execute(context.Background(), ops)
	if err != nil {
		t.Fatal(err)
	}

	if result.OperationsSuccessful != 1 {
		t.Errorf("operations_successful = %d, want 1", result.OperationsSuccessful)
	}
	if result.FilesModified != 1 {
		t.Errorf("files_modified = %d, want 1", result.FilesModified)
	}
	if result.OperationsFailed != 0 {
		t.Errorf("operations_failed = %d, want 0 (mismatch is a skip, not a failure)", result.OperationsFailed)
	}

	got := readTestFile(t, path)
	want := "line one\nLINE TWO\nline three"
	if got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	// Backup reproduces pre-run content exactly.
	backup := readTestFile(t, path+".bak")
	if backup != original {
		t.Errorf("backup = %q, want original %q", backup, original)
	}
}

func TestExecuteNoBackupWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "a\nb")

	engine := NewReplaceEngine().WithBackups(false, "")
	_, err := engine.Execute(context.Background(), []domain.ReplaceOperation{
		{Path: path, LineNumber: 1, OldContent: "a", NewContent: "A"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Error("backup file written despite backups disabled")
	}
}

func TestExecuteStaleLineLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	original := "alpha\nbeta\ngamma"
	path := writeTestFile(t, dir, "f.txt", original)

	result, err := NewReplaceEngine().Execute(context.Background(), []domain.ReplaceOperation{
		{Path: path, LineNumber: 2, OldContent: "not beta", NewContent: "BETA"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.OperationsSuccessful != 0 || result.FilesModified != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if got := readTestFile(t, path); got != original {
		t.Errorf("file mutated on all-stale batch: %q", got)
	}
}

func TestExecuteOutOfRangeLineSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "only line")

	result, err := NewReplaceEngine().Execute(context.Background(), []domain.ReplaceOperation{
		{Path: path, LineNumber: 99, OldContent: "x", NewContent: "y"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.OperationsSuccessful != 0 || result.OperationsFailed != 0 {
		t.Errorf("out-of-range line should be a silent skip: %+v", result)
	}
}

func TestExecuteOversizedFileFailsWholeGroup(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "big.txt", strings.Repeat("x", 100)+"\nsecond line")

	engine := NewReplaceEngine().WithMaxFileSize(10)
	result, err := engine.Execute(context.Background(), []domain.ReplaceOperation{
		{Path: path, LineNumber: 1, OldContent: "irrelevant", NewContent: "y"},
		{Path: path, LineNumber: 2, OldContent: "second line", NewContent: "z"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The whole group fails; no bytes written.
	if result.OperationsFailed != 2 {
		t.Errorf("operations_failed = %d, want 2", result.OperationsFailed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want one per failed file", result.Errors)
	}
	if strings.Contains(readTestFile(t, path), "z") {
		t.Error("oversized file was written")
	}
}

func TestExecuteMissingFileFailsGroupOthersProceed(t *testing.T) {
	dir := t.TempDir()
	good := writeTestFile(t, dir, "good.txt", "keep\nchange me")
	missing := filepath.Join(dir, "missing.txt")

	result, err := NewReplaceEngine().Execute(context.Background(), []domain.ReplaceOperation{
		{Path: missing, LineNumber: 1, OldContent: "x", NewContent: "y"},
		{Path: good, LineNumber: 2, OldContent: "change me", NewContent: "changed"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.OperationsFailed != 1 {
		t.Errorf("operations_failed = %d, want 1", result.OperationsFailed)
	}
	if result.OperationsSuccessful != 1 {
		t.Errorf("operations_successful = %d, want 1", result.OperationsSuccessful)
	}
	if result.FilesModified != 1 {
		t.Errorf("files_modified = %d, want 1", result.FilesModified)
	}
	if got := readTestFile(t, good); got != "keep\nchanged" {
		t.Errorf("good file = %q", got)
	}
}

func TestExecuteSerialOrderWithinFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "v1")

	// The second operation depends on the first not having fired: after op 1
	// rewrites line 1, op 2's expected content no longer matches.
	result, err := NewReplaceEngine().Execute(context.Background(), []domain.ReplaceOperation{
		{Path: path, LineNumber: 1, OldContent: "v1", NewContent: "v2"},
		{Path: path, LineNumber: 1, OldContent: "v1", NewContent: "v3"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.OperationsSuccessful != 1 {
		t.Errorf("operations_successful = %d, want 1", result.OperationsSuccessful)
	}
	if got := readTestFile(t, path); got != "v2" {
		t.Errorf("file = %q, want v2 (first op wins)", got)
	}
}

func TestExecuteManyFilesInParallel(t *testing.T) {
	dir := t.TempDir()
	var ops []domain.ReplaceOperation
	paths := make([]string, 8)
	for i := range paths {
		paths[i] = writeTestFile(t, dir, filepath.Base(dir)+string(rune('a'+i))+".txt", "old content")
		ops = append(ops, domain.ReplaceOperation{
			Path: paths[i], LineNumber: 1, OldContent: "old content", NewContent: "new content",
		})
	}

	result, err := NewReplaceEngine().WithParallelism(4).Execute(context.Background(), ops)
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesModified != 8 || result.OperationsSuccessful != 8 {
		t.Errorf("unexpected result: %+v", result)
	}
	for _, p := range paths {
		if got := readTestFile(t, p); got != "new content" {
			t.Errorf("%s = %q", p, got)
		}
	}
}

func TestValidateRejectsBadLineNumber(t *testing.T) {
	engine := NewReplaceEngine()
	err := engine.Validate([]domain.ReplaceOperation{
		{Path: "whatever.txt", LineNumber: 0, OldContent: "x", NewContent: "y"},
	})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateChecksSizeCeiling(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "big.txt", strings.Repeat("x", 64))

	engine := NewReplaceEngine().WithMaxFileSize(8)
	err := engine.Validate([]domain.ReplaceOperation{
		{Path: path, LineNumber: 1, OldContent: "x", NewContent: "y"},
	})
	var fErr *domain.FileError
	if !errors.As(err, &fErr) {
		t.Fatalf("expected FileError, got %v", err)
	}
	// Validation never mutates.
	if got := readTestFile(t, path); got != strings.Repeat("x", 64) {
		t.Error("validate touched file contents")
	}
}

func TestValidatePassesGoodBatch(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "ok.txt", "hello")

	engine := NewReplaceEngine()
	if err := engine.Validate([]domain.ReplaceOperation{
		{Path: path, LineNumber: 1, OldContent: "hello", NewContent: "goodbye"},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "content")

	_, err := NewReplaceEngine().Execute(ctx, []domain.ReplaceOperation{
		{Path: path, LineNumber: 1, OldContent: "content", NewContent: "changed"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
