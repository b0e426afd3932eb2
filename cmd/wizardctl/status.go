package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jaczemann/sla-fw-sub001/internal/adapters/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the currently running wizard",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}

	status, err := settings.newIPCClient().Status()
	if errors.Is(err, ipc.ErrNoWizardRunning) {
		fmt.Println("no wizard is running")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("wizard: %s (run %s, pid %d)\n", status.Wizard, status.RunID, status.PID)
	fmt.Printf("state:  %s\n", status.State)

	ids := make([]string, 0, len(status.Checks))
	for id := range status.Checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := status.Checks[id]
		fmt.Printf("  %-14s %-8s %3.0f%%\n", id, c.State, c.Progress*100)
	}
	for _, warn := range status.Warnings {
		fmt.Printf("  warning: %s\n", warn)
	}
	return nil
}
