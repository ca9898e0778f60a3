package main

import (
	"fmt"

	"github.com/JongoDB/cyroid-console/internal/daemon"
	"github.com/JongoDB/cyroid-console/internal/ui"
)

// ReloadCmd asks a running session to reconnect to the console.
type ReloadCmd struct{}

func (c *ReloadCmd) Run(globals *CLI) error {
	hostName, err := resolveHost(globals)
	if err != nil {
		return err
	}
	client, err := daemon.NewClient(hostName)
	if err != nil {
		return err
	}
	if !client.IsRunning() {
		return fmt.Errorf("no session for host %q", hostName)
	}
	if err := client.Reload(); err != nil {
		return err
	}
	fmt.Println(ui.StepOK("Reload requested"))
	return nil
}

// DownCmd stops a running session.
type DownCmd struct{}

func (c *DownCmd) Run(globals *CLI) error {
	hostName, err := resolveHost(globals)
	if err != nil {
		return err
	}
	client, err := daemon.NewClient(hostName)
	if err != nil {
		return err
	}
	if !client.IsRunning() {
		fmt.Println(ui.StepInfo(fmt.Sprintf("No session for host %q", hostName)))
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println(ui.StepOK("Session stopped"))
	return nil
}
