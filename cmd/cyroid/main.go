package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/JongoDB/cyroid-console/internal/hostcfg"
)

// CLI is the top-level Kong struct.
type CLI struct {
	Verbose bool   `short:"v" help:"Verbose output."`
	Host    string `short:"H" help:"Host name from ~/.config/cyroid/hosts/."`

	Connect ConnectCmd `cmd:"" help:"Open a remote console session to a VM."`
	Status  StatusCmd  `cmd:"" help:"Show live session state."`
	Reload  ReloadCmd  `cmd:"" help:"Ask a running session to reconnect."`
	Down    DownCmd    `cmd:"" help:"Stop a running session."`
	Hosts   HostCmd    `cmd:"" name:"host" help:"Manage the range host registry."`
	Sandbox SandboxCmd `cmd:"" help:"Run a disposable local console container."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

func main() {
	// Local overrides for development (range URL, token). Missing file is fine.
	_ = godotenv.Load()

	var cli CLI
	k, err := kong.New(&cli,
		kong.Name("cyroid"),
		kong.Description("CYROID console — remote VM consoles with clipboard relay"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			NoExpandSubcommands: true,
			Compact:             true,
		}),
	)
	if err != nil {
		panic(err)
	}

	args := os.Args[1:]
	// No args or bare "help" → print usage and exit 0 (not an error).
	// Passing --help to k.Parse lets Kong handle the print+exit itself.
	if len(args) == 0 || (len(args) == 1 && args[0] == "help") {
		_, _ = k.Parse([]string{"--help"})
		os.Exit(0) // unreachable; defensive fallback
	}

	ctx, err := k.Parse(args)
	k.FatalIfErrorf(err)
	k.FatalIfErrorf(ctx.Run(&cli))
}

// resolveHost returns the host name to use, in order of precedence:
// 1. --host flag (globals.Host)
// 2. default_host in ~/.config/cyroid/config.yaml
func resolveHost(globals *CLI) (string, error) {
	if globals.Host != "" {
		return globals.Host, nil
	}
	cfg, err := hostcfg.LoadGlobalConfig()
	if err == nil && cfg.DefaultHost != "" {
		return cfg.DefaultHost, nil
	}
	return "", fmt.Errorf("--host <name> required (or run 'cyroid host default <name>')")
}
