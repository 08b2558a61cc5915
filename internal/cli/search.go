package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"codesearch/config"
	"codesearch/internal/adapter/analyzer"
	"codesearch/internal/adapter/cache"
	"codesearch/internal/adapter/events"
	"codesearch/internal/adapter/index"
	"codesearch/internal/adapter/repo"
	"codesearch/internal/usecase"
)

var (
	searchPattern    string
	searchRegex      bool
	searchCaseSens   bool
	searchWholeWord  bool
	searchPathFilter string
	searchMax        int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a literal or regex search over the indexed tree",
	Long: `Search indexed file contents for a literal string or regular expression.

Examples:
  codesearch search -q "TODO"
  codesearch search -q "func \w+Handler" --regex
  codesearch search -q "config" --word --path-filter internal/ --max 20`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchPattern, "query", "q", "", "search pattern (required)")
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "treat pattern as a regular expression")
	searchCmd.Flags().BoolVar(&searchCaseSens, "case-sensitive", false, "match case exactly")
	searchCmd.Flags().BoolVar(&searchWholeWord, "word", false, "match whole words only")
	searchCmd.Flags().StringVar(&searchPathFilter, "path-filter", "", "keep only results whose path contains this substring")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "maximum result count (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	dbPath := config.IndexDBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'codesearch index' first")
	}

	handle, err := index.Open(dbPath, analyzer.NewTokenizer())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer handle.Close()

	queryCache, err := cache.NewQueryCache(cfg.Search.CacheSize, time.Duration(cfg.Search.CacheTTLSecs)*time.Second)
	if err != nil {
		return err
	}

	searchUC := usecase.NewSearchUseCase(repo.New(handle), events.NewPublisher()).
		WithCache(queryCache)

	maxResults := cfg.Search.MaxResults
	if cmd.Flags().Changed("max") {
		maxResults = searchMax
	}

	resp, err := searchUC.Execute(usecase.SearchFilesRequest{
		Pattern:       searchPattern,
		IsRegex:       searchRegex,
		CaseSensitive: searchCaseSens,
		WholeWord:     searchWholeWord,
		PathFilter:    searchPathFilter,
		MaxResults:    maxResults,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for _, r := range resp.Results {
		fmt.Printf("%s (%d matches)\n", r.Path, r.MatchCount())
		for _, m := range r.Matches {
			fmt.Printf("  %d: %s\n", m.Line, m.Text)
		}
	}
	fmt.Printf("\n%d matches in %d files", resp.TotalMatches, len(resp.Results))
	if resp.Truncated {
		fmt.Print(" (truncated)")
	}
	fmt.Println()
	return nil
}
