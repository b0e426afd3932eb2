package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List persisted wizard results",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	store := history.NewStore(settings.FactoryDir, settings.UserDir)
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No wizard results recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-12s %-8s %s  %s\n", e.Wizard, e.Partition,
			e.ModTime.Format("2006-01-02 15:04:05"), e.Path)
	}
	return nil
}
