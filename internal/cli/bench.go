package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codesearch/config"
	"codesearch/internal/adapter/analyzer"
	"codesearch/internal/adapter/index"
	"codesearch/internal/usecase"
)

var (
	benchQueriesFile string
	benchMode        string
	benchK           int
	benchJSON        bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark retrieval quality against labeled queries",
	Long: `Replay labeled queries against the committed index and report recall,
precision, MRR, NDCG, median latency, and throughput.

The queries file is a JSON list of
  {"id": "...", "query": "...", "expected_chunk_ids": [1, 2], "k": 10}

Examples:
  codesearch bench --queries bench.json
  codesearch bench --queries bench.json --mode fallback --json`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVar(&benchQueriesFile, "queries", "", "benchmark fixture file (required)")
	benchCmd.Flags().StringVar(&benchMode, "mode", string(usecase.ModeLexical), "retrieval mode: lexical, vector, hybrid, fallback")
	benchCmd.Flags().IntVarP(&benchK, "top-k", "k", 0, "override k for every query (default from fixture)")
	benchCmd.Flags().BoolVar(&benchJSON, "json", false, "output as JSON")
	benchCmd.MarkFlagRequired("queries")
}

func runBench(cmd *cobra.Command, args []string) error {
	dbPath := config.IndexDBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'codesearch index' first")
	}

	handle, err := index.Open(dbPath, analyzer.NewTokenizer())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer handle.Close()
	handle.SetParams(cfg.Index.K1, cfg.Index.B)

	queries, err := usecase.LoadQueries(benchQueriesFile)
	if err != nil {
		return err
	}

	if benchK > 0 {
		for i := range queries {
			queries[i].K = benchK
		}
	}
	for i := range queries {
		if queries[i].K < 1 {
			queries[i].K = cfg.Benchmark.DefaultK
		}
	}

	harness := usecase.NewHarness(handle, queries)

	result, err := harness.Run(usecase.Mode(benchMode))
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	if benchJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Benchmark (%s mode, %d queries):\n", result.Mode, result.QueryCount)
	fmt.Printf("  Recall@k:     %.4f\n", result.RecallAtK)
	fmt.Printf("  Precision@k:  %.4f\n", result.PrecisionAtK)
	fmt.Printf("  MRR:          %.4f\n", result.MRR)
	fmt.Printf("  NDCG:         %.4f\n", result.NDCG)
	fmt.Printf("  Median lat.:  %.3f ms\n", result.MedianLatencyMS)
	fmt.Printf("  Throughput:   %.1f q/s\n", result.ThroughputQPS)
	fmt.Printf("  Wall time:    %s\n", result.TotalWallTime)
	return nil
}
