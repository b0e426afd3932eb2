package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaczemann/sla-fw-sub001/internal/adapters/configfile"
	"github.com/jaczemann/sla-fw-sub001/internal/adapters/filesystem"
	"github.com/jaczemann/sla-fw-sub001/internal/adapters/ipc"
	"github.com/jaczemann/sla-fw-sub001/internal/adapters/simulator"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/history"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/wizard"
	"github.com/jaczemann/sla-fw-sub001/internal/ports"
	"github.com/jaczemann/sla-fw-sub001/internal/wizards/selftest"
)

var runCmd = &cobra.Command{
	Use:   "run <wizard>",
	Short: "Run a guided procedure on the simulated hardware",
	Long: `Run executes a wizard against the hardware simulator.

Interaction states are surfaced as they appear; with --auto they are
resolved immediately, otherwise the run waits for an enter keypress.

Examples:
  wizardctl run self_test          # Interactive run
  wizardctl run self_test --auto   # Resolve interactions automatically`,
	Args: cobra.ExactArgs(1),
	RunE: runWizard,
}

var runAuto bool

func init() {
	runCmd.Flags().BoolVar(&runAuto, "auto", false, "Resolve interaction states without prompting")
	rootCmd.AddCommand(runCmd)
}

func runWizard(_ *cobra.Command, args []string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	log := settings.newLogger()

	if wizard.ID(args[0]) != selftest.WizardID {
		return fmt.Errorf("unknown wizard %q", args[0])
	}

	hw := simulator.NewHardware()
	hw.SetCoverCheck(settings.coverCheckEnabled())

	pkg := wizard.NewDataPackage(hw, log)

	writer := configfile.NewWriter(settings.HardwareCfg, "wizards", filesystem.NewRealFileSystem())
	pkg.AddWriter(writer)

	store := history.NewStore(settings.FactoryDir, settings.UserDir,
		history.WithFactoryMode(settings.FactoryMode))

	wz, err := selftest.New(pkg,
		wizard.WithStore(store),
		wizard.WithFinishedHook(func(_ context.Context) {
			writer.Set("self_test_done", true)
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Control socket: lets a second wizardctl invocation watch, answer
	// or cancel this run.
	server := ipc.NewServer(ipc.ServerConfig{
		SocketPath: settings.SocketPath,
		LockPath:   settings.LockPath,
	}, ipc.NewWizardProvider(wz))
	if err := server.Start(); err != nil {
		log.Warn(ctx, "control socket unavailable", ports.F("error", err))
	} else {
		defer func() { _ = server.Stop() }()
	}

	wz.Start(ctx)
	watchRun(ctx, wz)

	<-wz.Done()
	return report(wz)
}

// watchRun streams state transitions and answers interaction states
// until the wizard finishes.
func watchRun(ctx context.Context, wz *wizard.Wizard) {
	last := wizard.State("")
	resolved := make(map[useraction.State]bool)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-wz.Done():
			return
		case <-ctx.Done():
			wz.ForceCancel()
			<-wz.Done()
			return
		case <-ticker.C:
		}

		state := wz.State()
		if state != last {
			fmt.Printf("state: %s\n", state)
			last = state
		}

		top, ok := wz.Broker().Top()
		if !ok || resolved[top] {
			continue
		}
		action, known := selftest.ActionFor(top)
		if !known {
			continue
		}
		if !runAuto {
			fmt.Printf("interaction required: %s (press enter to confirm)\n", top)
			bufio.NewReader(os.Stdin).ReadString('\n')
		}
		if err := wz.Broker().Resolve(action); err == nil {
			resolved[top] = true
		}
	}
}

// report summarizes the finished run on stdout.
func report(wz *wizard.Wizard) error {
	fmt.Printf("wizard %s finished: %s\n", wz.ID(), wz.State())
	for id, data := range wz.CheckData() {
		fmt.Printf("  %-14s %s\n", id, data.State)
	}
	for _, warn := range wz.Warnings() {
		fmt.Printf("  warning: %v\n", warn)
	}
	if err := wz.Err(); err != nil {
		return err
	}
	return nil
}
