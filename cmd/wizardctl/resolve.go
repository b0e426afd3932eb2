package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaczemann/sla-fw-sub001/internal/adapters/ipc"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <action>",
	Short: "Answer an interaction state of the running wizard",
	Long: `Resolve triggers a user action registered by the running wizard,
answering whatever interaction state it currently surfaces.

Example:
  wizardctl resolve self_test_confirm_readiness`,
	Args: cobra.ExactArgs(1),
	RunE: resolveAction,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func resolveAction(_ *cobra.Command, args []string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}

	resp, err := settings.newIPCClient().Resolve(args[0])
	if errors.Is(err, ipc.ErrNoWizardRunning) {
		fmt.Println("no wizard is running")
		return nil
	}
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("resolve %s: %s", resp.Action, resp.Message)
	}
	fmt.Printf("resolved %s\n", resp.Action)
	return nil
}
