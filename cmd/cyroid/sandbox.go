package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/JongoDB/cyroid-console/internal/sandbox"
	"github.com/JongoDB/cyroid-console/internal/tui"
	"github.com/JongoDB/cyroid-console/internal/ui"
)

// SandboxCmd runs a disposable local web-VNC console container, useful for
// trying the client without a range backend.
type SandboxCmd struct{}

func (c *SandboxCmd) Run(globals *CLI) error {
	launcher, err := sandbox.NewLauncher()
	if err != nil {
		return err
	}
	defer func() { _ = launcher.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var inst *sandbox.Instance
	steps := []tui.Step{
		{
			Title: "Pulling console image",
			Run: func(ctx context.Context, sub func(string)) error {
				return launcher.EnsureImage(ctx)
			},
		},
		{
			Title: "Starting console container",
			Run: func(ctx context.Context, sub func(string)) error {
				inst, err = launcher.Launch(ctx)
				if err != nil {
					return err
				}
				sub(fmt.Sprintf("Console on port %s", inst.Port))
				return nil
			},
		},
	}
	if err := tui.RunSteps(ctx, steps); err != nil {
		return err
	}

	fmt.Println(ui.StepOK("Sandbox console up"))
	fmt.Println(ui.StepInfo("Open " + inst.ConsoleURL))
	fmt.Println(ui.StepInfo("Press Ctrl-C to stop"))

	<-ctx.Done()

	fmt.Println(ui.StepRun("Stopping sandbox..."))
	stopCtx := context.Background()
	if err := launcher.Stop(stopCtx, inst.ContainerID); err != nil {
		return err
	}
	return nil
}
