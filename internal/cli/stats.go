package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/recallmem/recall/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	total, err := db.CountRecords()
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	size, err := db.SizeBytes()
	if err != nil {
		return fmt.Errorf("store size: %w", err)
	}
	version, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}

	fmt.Printf("db:      %s\n", db.Path)
	fmt.Printf("size:    %s\n", humanize.Bytes(uint64(size)))
	fmt.Printf("schema:  v%d\n", version)
	fmt.Printf("records: %d\n", total)

	for _, t := range []store.RecordType{
		store.RecordPreference, store.RecordProjectKnowledge,
		store.RecordCorrectionPattern, store.RecordToolUse,
	} {
		n, err := db.CountByType(t)
		if err != nil {
			return fmt.Errorf("count %s: %w", t, err)
		}
		fmt.Printf("  %-20s %d\n", t, n)
	}
	return nil
}
