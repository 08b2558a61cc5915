package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codesearch/internal/domain"
	"codesearch/internal/usecase"
)

var (
	replaceOpsFile  string
	replaceValidate bool
	replaceNoBackup bool
)

var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Apply validated line-level edits across files",
	Long: `Apply a batch of line-level text replacements. Each operation is applied
only if the target line still matches its recorded content; stale operations
are skipped. Originals are backed up alongside the file unless disabled.

The operations file is a JSON list of
  {"file_path": "...", "line_number": 3, "old_content": "...", "new_content": "...", "byte_offset": 0}

Examples:
  codesearch replace --ops edits.json
  codesearch replace --ops edits.json --validate-only
  codesearch replace --ops edits.json --no-backup`,
	RunE: runReplace,
}

func init() {
	rootCmd.AddCommand(replaceCmd)
	replaceCmd.Flags().StringVar(&replaceOpsFile, "ops", "", "operations file (required)")
	replaceCmd.Flags().BoolVar(&replaceValidate, "validate-only", false, "validate the batch without applying it")
	replaceCmd.Flags().BoolVar(&replaceNoBackup, "no-backup", false, "skip backup files")
	replaceCmd.MarkFlagRequired("ops")
}

func runReplace(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(replaceOpsFile)
	if err != nil {
		return fmt.Errorf("failed to read operations file: %w", err)
	}

	var operations []domain.ReplaceOperation
	if err := json.Unmarshal(data, &operations); err != nil {
		return fmt.Errorf("malformed operations file: %w", err)
	}
	if len(operations) == 0 {
		return fmt.Errorf("no operations in %s", replaceOpsFile)
	}

	engine := usecase.NewReplaceEngine().
		WithMaxFileSize(cfg.Replace.MaxFileSizeBytes).
		WithBackups(cfg.Replace.Backup && !replaceNoBackup, cfg.Replace.BackupSuffix).
		WithParallelism(cfg.Replace.Parallelism)

	if err := engine.Validate(operations); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if replaceValidate {
		fmt.Printf("%d operations validated.\n", len(operations))
		return nil
	}

	result, err := engine.Execute(cmd.Context(), operations)
	if err != nil {
		return fmt.Errorf("replace failed: %w", err)
	}

	fmt.Printf("Replace complete:\n")
	fmt.Printf("  Files modified:        %d\n", result.FilesModified)
	fmt.Printf("  Operations successful: %d\n", result.OperationsSuccessful)
	fmt.Printf("  Operations failed:     %d\n", result.OperationsFailed)
	for _, e := range result.Errors {
		fmt.Printf("  - %s\n", e)
	}
	return nil
}
