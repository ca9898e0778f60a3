package main

import (
	"fmt"
	"strings"

	"github.com/JongoDB/cyroid-console/internal/hostcfg"
	"github.com/JongoDB/cyroid-console/internal/ui"
)

// HostCmd manages the range host registry.
type HostCmd struct {
	Add     HostAddCmd     `cmd:"" name:"add" help:"Add a range host."`
	Rm      HostRmCmd      `cmd:"" name:"rm" help:"Remove a host."`
	Ls      HostLsCmd      `cmd:"" name:"ls" help:"List hosts."`
	Default HostDefaultCmd `cmd:"" name:"default" help:"Get or set the default host."`
}

// HostAddCmd registers a range backend.
type HostAddCmd struct {
	Name    string `arg:"" help:"Host name."`
	BaseURL string `name:"url" required:"" help:"Range backend URL, e.g. https://range.example.com."`
	Token   string `required:"" help:"API bearer token."`
	VM      string `help:"Default VM for 'cyroid connect'."`
}

func (c *HostAddCmd) Run() error {
	cfg := &hostcfg.HostConfig{
		Name:      c.Name,
		BaseURL:   c.BaseURL,
		Token:     c.Token,
		DefaultVM: c.VM,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Println(ui.StepOK(fmt.Sprintf("Host %q saved", c.Name)))
	return nil
}

// HostRmCmd removes a host config.
type HostRmCmd struct {
	Name string `arg:""`
}

func (c *HostRmCmd) Run() error {
	if err := hostcfg.Delete(c.Name); err != nil {
		return err
	}
	// Clear default_host if it pointed to the removed host.
	if cfg, err := hostcfg.LoadGlobalConfig(); err == nil && cfg.DefaultHost == c.Name {
		cfg.DefaultHost = ""
		_ = hostcfg.SaveGlobalConfig(cfg)
	}
	return nil
}

// HostLsCmd lists registered hosts.
type HostLsCmd struct{}

func (c *HostLsCmd) Run() error {
	names, err := hostcfg.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println(ui.Section("Hosts", "No hosts configured. Use 'cyroid host add' to add one.", ui.MaxWidth))
		return nil
	}
	cfg, _ := hostcfg.LoadGlobalConfig()
	var lines []string
	for _, n := range names {
		if cfg != nil && n == cfg.DefaultHost {
			lines = append(lines, fmt.Sprintf("%s %s   (default)", ui.Dot(ui.StateConnected), n))
		} else {
			lines = append(lines, "  "+n)
		}
	}
	fmt.Println(ui.Section("Hosts", strings.Join(lines, "\n"), ui.MaxWidth))
	return nil
}

// HostDefaultCmd gets or sets the default host.
type HostDefaultCmd struct {
	Name string `arg:"" optional:"" help:"Host name to set as default. If omitted, prints the current default."`
}

func (c *HostDefaultCmd) Run() error {
	if c.Name == "" {
		cfg, err := hostcfg.LoadGlobalConfig()
		if err != nil {
			return err
		}
		if cfg.DefaultHost == "" {
			fmt.Println("No default host set. Run 'cyroid host default <name>' to set one.")
		} else {
			fmt.Println(cfg.DefaultHost)
		}
		return nil
	}
	if _, err := hostcfg.Load(c.Name); err != nil {
		return fmt.Errorf("host %q not found: run 'cyroid host add %s --url <url> --token <token>' first", c.Name, c.Name)
	}
	cfg, err := hostcfg.LoadGlobalConfig()
	if err != nil {
		return err
	}
	cfg.DefaultHost = c.Name
	if err := hostcfg.SaveGlobalConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Default host set to %q.\n", c.Name)
	return nil
}
