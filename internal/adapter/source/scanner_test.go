package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codesearch/internal/adapter/analyzer"
	"codesearch/internal/domain"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func drain(t *testing.T, stream interface {
	Next() (domain.Chunk, error)
}) []domain.Chunk {
	t.Helper()
	var chunks []domain.Chunk
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, chunk)
	}
}

func TestScannerChunksFileIntoWindows(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "line content here")
	}
	writeFixture(t, dir, "long.go", strings.Join(lines, "\n"))

	walker := NewWalker([]string{"**/*.go"}, nil)
	scanner := NewScanner(walker, analyzer.NewTokenizer(), 4, "repo1")

	stream, err := scanner.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	chunks := drain(t, stream)

	// 10 lines at height 4: windows of 4, 4, 2.
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0].StartLine != 1 || chunks[0].EndLine != 4 {
		t.Errorf("first window = [%d,%d], want [1,4]", chunks[0].StartLine, chunks[0].EndLine)
	}
	if chunks[2].StartLine != 9 || chunks[2].EndLine != 10 {
		t.Errorf("last window = [%d,%d], want [9,10]", chunks[2].StartLine, chunks[2].EndLine)
	}
}

func TestScannerAssignsMonotonicIDs(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.go", "package a")
	writeFixture(t, dir, "b.go", "package b")
	writeFixture(t, dir, "sub/c.go", "package c")

	walker := NewWalker([]string{"**/*.go"}, nil)
	scanner := NewScanner(walker, analyzer.NewTokenizer(), 40, "repo1")

	stream, err := scanner.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	chunks := drain(t, stream)

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.ID != uint64(i+1) {
			t.Errorf("chunk %d has id %d, want monotonic from 1", i, c.ID)
		}
		if c.Meta.ChunkID != c.ID {
			t.Errorf("meta id %d disagrees with chunk id %d", c.Meta.ChunkID, c.ID)
		}
		if c.Meta.RepoID != "repo1" {
			t.Errorf("repo id = %s", c.Meta.RepoID)
		}
	}
}

func TestScannerSkipsBlankWindows(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "sparse.go", "package a\n\n\n\n\n\n\n\n")

	walker := NewWalker([]string{"**/*.go"}, nil)
	scanner := NewScanner(walker, analyzer.NewTokenizer(), 2, "r")

	stream, err := scanner.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	chunks := drain(t, stream)

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1 (blank windows dropped)", len(chunks))
	}
}

func TestScannerDetectsLanguage(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "main.go", "package main")
	writeFixture(t, dir, "script.py", "import os")
	writeFixture(t, dir, "notes.md", "# Notes")
	writeFixture(t, dir, "data.bin2", "opaque")

	walker := NewWalker([]string{"**/*"}, nil)
	scanner := NewScanner(walker, analyzer.NewTokenizer(), 40, "r")

	stream, err := scanner.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	langs := make(map[string]string)
	for _, c := range drain(t, stream) {
		langs[filepath.Base(c.Path)] = c.Lang
	}

	want := map[string]string{
		"main.go":   "go",
		"script.py": "python",
		"notes.md":  "markdown",
		"data.bin2": "unknown",
	}
	for name, lang := range want {
		if langs[name] != lang {
			t.Errorf("%s detected as %q, want %q", name, langs[name], lang)
		}
	}
}

func TestScannerPopulatesChecksumAndIdentifiers(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.go", "func handleRequest(userID string) {}")

	walker := NewWalker([]string{"**/*.go"}, nil)
	scanner := NewScanner(walker, analyzer.NewTokenizer(), 40, "r")

	stream, err := scanner.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	chunks := drain(t, stream)

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	c := chunks[0]
	if len(c.Meta.Checksum) != 16 {
		t.Errorf("checksum = %q, want 16 hex chars", c.Meta.Checksum)
	}
	found := false
	for _, id := range c.Identifiers {
		if id == "handleRequest" {
			found = true
		}
	}
	if !found {
		t.Errorf("identifiers missing handleRequest: %v", c.Identifiers)
	}
	if c.Meta.TokenCount == 0 {
		t.Error("token count not populated")
	}
}

func TestWalkerExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "keep.go", "package a")
	writeFixture(t, dir, "vendor/dep.go", "package dep")

	walker := NewWalker([]string{"**/*.go"}, []string{"vendor/**"})
	files, err := walker.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 1 {
		t.Fatalf("files = %v, want only keep.go", files)
	}
	if filepath.Base(files[0]) != "keep.go" {
		t.Errorf("kept %s", files[0])
	}
}

func TestStreamCloseStopsIteration(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.go", "package a")

	walker := NewWalker([]string{"**/*.go"}, nil)
	scanner := NewScanner(walker, analyzer.NewTokenizer(), 40, "r")

	stream, err := scanner.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after close, got %v", err)
	}
}

func TestExtractIdentifiers(t *testing.T) {
	ids := extractIdentifiers("func parseConfig(raw_input []byte) { return 42 }")

	want := map[string]bool{"func": true, "parseConfig": true, "raw_input": true, "byte": true, "return": true}
	got := make(map[string]bool)
	for _, id := range ids {
		got[id] = true
	}
	for id := range want {
		if !got[id] {
			t.Errorf("missing identifier %q in %v", id, ids)
		}
	}
	if got["42"] {
		t.Error("numeric literal extracted as identifier")
	}
}
