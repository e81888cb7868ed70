package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/recallmem/recall/internal/engine"
	"github.com/spf13/cobra"
)

var compactForce bool

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact the memory store",
	Long:  "Deduplicate records, prune old tool history, and reclaim disk space. Runs only when the store exceeds its limits unless --force is set.",
	RunE:  runCompact,
}

func init() {
	compactCmd.Flags().BoolVar(&compactForce, "force", false, "Compact even when the store is within limits")
}

func runCompact(cmd *cobra.Command, args []string) error {
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

	before, err := db.SizeBytes()
	if err != nil {
		return fmt.Errorf("store size: %w", err)
	}

	if !compactForce {
		due, err := eng.ShouldCompact()
		if err != nil {
			return fmt.Errorf("compaction check: %w", err)
		}
		if !due {
			fmt.Printf("Store is within limits (%s). Use --force to compact anyway.\n",
				humanize.Bytes(uint64(before)))
			return nil
		}
	}

	stats, err := eng.Compact()
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}

	after, err := db.SizeBytes()
	if err != nil {
		return fmt.Errorf("store size: %w", err)
	}

	fmt.Printf("Compacted in %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Printf("  deduplicated: %d\n", stats.Deduplicated)
	fmt.Printf("  pruned:       %d\n", stats.Removed)
	fmt.Printf("  size:         %s -> %s\n", humanize.Bytes(uint64(before)), humanize.Bytes(uint64(after)))
	return nil
}
