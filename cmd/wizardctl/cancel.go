package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaczemann/sla-fw-sub001/internal/adapters/ipc"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the currently running wizard",
	Args:  cobra.NoArgs,
	RunE:  cancelWizard,
}

var cancelForce bool

func init() {
	cancelCmd.Flags().BoolVar(&cancelForce, "force", false, "Cancel even a wizard that declares itself non-cancelable")
	rootCmd.AddCommand(cancelCmd)
}

func cancelWizard(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}

	resp, err := settings.newIPCClient().Cancel(cancelForce)
	if errors.Is(err, ipc.ErrNoWizardRunning) {
		fmt.Println("no wizard is running")
		return nil
	}
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("cancel refused: %s", resp.Message)
	}
	fmt.Println(resp.Message)
	return nil
}
