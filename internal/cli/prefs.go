package cli

import (
	"fmt"
	"time"

	"github.com/recallmem/recall/internal/store"
	"github.com/spf13/cobra"
)

var (
	prefsProject string
	prefsHistory bool
)

var prefsCmd = &cobra.Command{
	Use:   "prefs [key]",
	Short: "Show preferences",
	Long:  "List active preferences, or the full supersession history for one key with --history.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrefs,
}

func init() {
	prefsCmd.Flags().StringVarP(&prefsProject, "project", "p", "", "Project scope")
	prefsCmd.Flags().BoolVar(&prefsHistory, "history", false, "Show all records for a key, including superseded ones")
}

func runPrefs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if prefsHistory {
		if len(args) == 0 {
			return fmt.Errorf("--history requires a preference key")
		}
		return printHistory(db, args[0])
	}

	prefs, err := db.ActivePreferences(prefsProject)
	if err != nil {
		return fmt.Errorf("list preferences: %w", err)
	}
	if len(prefs) == 0 {
		fmt.Println("No active preferences.")
		return nil
	}

	fmt.Println("## Active Preferences")
	for _, rec := range prefs {
		p, ok := rec.Payload.(store.PreferencePayload)
		if !ok {
			continue
		}
		ts := time.UnixMilli(rec.CreatedAt).Format("2006-01-02")
		fmt.Printf("  %-20s %s  (confidence %.2f, since %s)\n", p.Key, p.Value, p.Confidence, ts)
	}
	return nil
}

func printHistory(db *store.DB, key string) error {
	records, err := db.GetByPreferenceKey(prefsProject, key)
	if err != nil {
		return fmt.Errorf("preference history: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("No records for key %q.\n", key)
		return nil
	}

	fmt.Printf("## History for %s\n", key)
	for _, rec := range records {
		p, ok := rec.Payload.(store.PreferencePayload)
		if !ok {
			continue
		}
		state := "superseded"
		if rec.IsActive {
			state = "active"
		}
		ts := time.UnixMilli(rec.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("  [%s] %s = %s (%s, confidence %.2f)\n", ts, p.Key, p.Value, state, p.Confidence)
	}
	return nil
}
