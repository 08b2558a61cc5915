package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"codesearch/config"
	"codesearch/internal/adapter/analyzer"
	"codesearch/internal/adapter/index"
	"codesearch/internal/adapter/source"
	"codesearch/internal/adapter/telemetry"
	"codesearch/internal/domain"
	"codesearch/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Ingest a source tree into the lexical index",
	Long: `Walk the given directory, chunk its files, and build a ranked lexical
index stored in .codesearch/index.db within the target directory.

Examples:
  codesearch index .
  codesearch index /path/to/project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	if err := config.EnsureDataDir(path); err != nil {
		return fmt.Errorf("failed to create .codesearch directory: %w", err)
	}

	dbPath := config.IndexDBPath(path)
	// A build always starts from a fresh generation.
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear previous index: %w", err)
	}

	tokenizer := analyzer.NewTokenizer()

	writer, err := index.NewWriter(dbPath, tokenizer)
	if err != nil {
		return fmt.Errorf("failed to open index writer: %w", err)
	}

	walker := source.NewWalker(cfg.Index.Includes, cfg.Index.Excludes)
	scanner := source.NewScanner(walker, tokenizer, cfg.Index.ChunkLines, filepath.Base(path))

	stream, err := scanner.Open(path)
	if err != nil {
		writer.Close()
		return fmt.Errorf("failed to open chunk stream: %w", err)
	}
	defer stream.Close()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	ingest := usecase.NewIngestUseCase(writer).
		WithBatchSize(cfg.Index.BatchSize).
		WithProgress(cfg.Index.ProgressEvery, func(p domain.Progress) {
			bar.Set(p.ChunksIndexed)
			bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] %s", filepath.Base(p.LastPath)))
		})

	if cfg.Telemetry.Enabled {
		telemetryPath := cfg.Telemetry.Path
		if telemetryPath == "" {
			telemetryPath = config.TelemetryPath(path)
		}
		ingest = ingest.WithTelemetry(telemetry.NewFileSink(telemetryPath))
	}

	fmt.Printf("Scanning %s...\n", path)

	stats, handle, err := ingest.Ingest(cmd.Context(), stream)
	if err != nil {
		writer.Close()
		return fmt.Errorf("indexing failed: %w", err)
	}
	defer handle.Close()

	bar.Finish()

	size, _ := handle.SizeBytes()

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Run ID:         %s\n", stats.RunID)
	fmt.Printf("  Chunks indexed: %d\n", stats.ChunksIndexed)
	fmt.Printf("  Files indexed:  %d\n", stats.FilesIndexed)
	fmt.Printf("  Chunk errors:   %d\n", stats.Errors)
	fmt.Printf("  Duration:       %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Printf("  Index size:     %d bytes\n", size)
	fmt.Printf("\nIndex stored at: %s\n", dbPath)
	return nil
}
