package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/recallmem/recall/internal/engine"
	"github.com/recallmem/recall/internal/store"
	"github.com/spf13/cobra"
)

var (
	searchLimit   int
	searchProject string
	searchFile    string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored memories",
	Long:  "Rank stored memories against a query. Scope boosts apply when --project or --file is set.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (default from config)")
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "Project scope")
	searchCmd.Flags().StringVarP(&searchFile, "file", "f", "", "File scope")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, cfg.EngineOptions())
	results := eng.Retrieve(query, engine.Context{
		ProjectID: searchProject,
		FilePath:  searchFile,
	}, searchLimit)

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		rec := r.Record
		ts := time.UnixMilli(rec.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, r.Score, rec.Type, ts)
		fmt.Printf("   %s\n", summarizeRecord(rec))
		fmt.Println()
	}
	return nil
}

// summarizeRecord renders a record's payload as a one-line summary.
func summarizeRecord(rec store.MemoryRecord) string {
	switch p := rec.Payload.(type) {
	case store.PreferencePayload:
		state := "superseded"
		if rec.IsActive {
			state = "active"
		}
		return fmt.Sprintf("%s = %s (%s)", p.Key, p.Value, state)
	case store.KnowledgePayload:
		if p.Topic != "" {
			return fmt.Sprintf("[%s] %s", p.Topic, p.Content)
		}
		return p.Content
	case store.CorrectionPayload:
		return fmt.Sprintf("%q not %q (seen %dx)", p.CorrectedForm, p.OriginalForm, p.Frequency)
	case store.ToolUsePayload:
		return fmt.Sprintf("%s %s", p.Tool, p.InputSummary)
	default:
		return rec.Payload.SearchText()
	}
}
