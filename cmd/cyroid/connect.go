package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/sync/errgroup"

	"github.com/JongoDB/cyroid-console/internal/channel"
	"github.com/JongoDB/cyroid-console/internal/clipboard"
	"github.com/JongoDB/cyroid-console/internal/console"
	"github.com/JongoDB/cyroid-console/internal/daemon"
	"github.com/JongoDB/cyroid-console/internal/hostcfg"
	"github.com/JongoDB/cyroid-console/internal/inject"
	"github.com/JongoDB/cyroid-console/internal/metrics"
	"github.com/JongoDB/cyroid-console/internal/mockconsole"
	"github.com/JongoDB/cyroid-console/internal/prefs"
	"github.com/JongoDB/cyroid-console/internal/rangeapi"
	"github.com/JongoDB/cyroid-console/internal/relay"
	"github.com/JongoDB/cyroid-console/internal/tui"
	"github.com/JongoDB/cyroid-console/internal/ui"
)

// errConsoleSlow signals that the soft connect deadline fired while the
// console channel was still being dialed.
var errConsoleSlow = errors.New("console is taking longer than expected")

// ConnectCmd opens a remote console session to a VM and keeps it alive until
// Ctrl-C or 'cyroid down'.
type ConnectCmd struct {
	VM          string `arg:"" optional:"" help:"VM identifier (default: the host's default_vm)."`
	NoClipboard bool   `help:"Disable clipboard sync for this session."`
	Mock        bool   `help:"Connect to an in-process mock console (development)."`
}

// chanRef holds the live control channel; reloads swap it.
type chanRef struct {
	mu sync.Mutex
	ch *channel.Channel
}

func (r *chanRef) get() *channel.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch
}

func (r *chanRef) set(ch *channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ch = ch
}

func (c *ConnectCmd) Run(globals *CLI) error {
	pr, err := prefs.Load()
	if err != nil {
		return err
	}

	hostName := "mock"
	vmID := c.VM
	var api *rangeapi.Client

	if c.Mock {
		doc := mockconsole.NewDocument(mockconsole.WithControl("#clipboard-input"))
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("start mock console: %w", err)
		}
		defer func() { _ = ln.Close() }()
		go func() { _ = http.Serve(ln, mockconsole.New(doc).Handler()) }()
		api = rangeapi.New("http://"+ln.Addr().String(), "mock")
		if vmID == "" {
			vmID = "vm-mock"
		}
	} else {
		hostName, err = resolveHost(globals)
		if err != nil {
			return err
		}
		cfg, err := hostcfg.Load(hostName)
		if err != nil {
			return fmt.Errorf("load host config %q: %w", hostName, err)
		}
		if vmID == "" {
			vmID = cfg.DefaultVM
		}
		if vmID == "" {
			return fmt.Errorf("VM required: 'cyroid connect <vm>' or set default_vm for host %q", hostName)
		}
		api = rangeapi.New(cfg.BaseURL, cfg.Token)
	}

	ref := &chanRef{}
	send := func(m relay.Message) error {
		ch := ref.get()
		if ch == nil {
			return fmt.Errorf("control channel not open")
		}
		return ch.Send(m)
	}
	syncer := relay.NewSyncer(send,
		relay.WithOnPush(metrics.ClipboardPushes.Inc),
		relay.WithOnAck(metrics.RecordAck),
	)

	fetch := func(ctx context.Context) (console.ConnectionInfo, error) {
		info, err := api.ConnectionInfo(ctx, vmID)
		if err != nil {
			return console.ConnectionInfo{}, err
		}
		host, port := info.HostPort()
		return console.ConnectionInfo{
			TargetURL:    api.ConsoleURL(info),
			ChannelURL:   api.ChannelURL(info),
			ResourcePath: info.Path,
			HostLabel:    host,
			PortNumber:   port,
		}, nil
	}

	sess := console.New(vmID, fetch, syncer,
		console.WithDeadline(pr.ConnectDeadline()),
		console.WithOnChange(func(snap console.Snapshot) {
			metrics.RecordStatus(snap.Status.String())
		}),
		console.WithOnInject(func(o inject.Outcome) {
			metrics.InjectionAttempts.WithLabelValues(o.String()).Inc()
		}),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	steps := []tui.Step{
		{
			Title: fmt.Sprintf("Fetching connection info for %s", vmID),
			Run: func(ctx context.Context, sub func(string)) error {
				if err := sess.Open(ctx); err != nil {
					return err
				}
				snap := sess.Snapshot()
				sub(fmt.Sprintf("Console at %s:%d", snap.Info.HostLabel, snap.Info.PortNumber))
				return nil
			},
		},
		{
			Title: "Opening console channel",
			Run: func(ctx context.Context, sub func(string)) error {
				if err := dialAndLoad(ctx, sess, ref, false); err != nil {
					return err
				}
				sub("Console loaded")
				return nil
			},
		},
	}
	err = tui.RunSteps(runCtx, steps)

	// A soft timeout is recoverable: the user decides whether to keep
	// waiting, retry from scratch, or give up.
	for errors.Is(err, errConsoleSlow) {
		choice, perr := promptTimeout()
		if perr != nil {
			return perr
		}
		switch choice {
		case "wait":
			err = dialAndLoad(runCtx, sess, ref, true)
		case "retry":
			if oerr := sess.Reload(runCtx); oerr != nil {
				return oerr
			}
			err = dialAndLoad(runCtx, sess, ref, false)
		default:
			return fmt.Errorf("connect aborted")
		}
	}
	if err != nil {
		return err
	}

	snap := sess.Snapshot()
	fmt.Println(ui.StepOK(fmt.Sprintf("Connected to %s", vmID)))
	fmt.Println(ui.StepInfo("Console URL: " + snap.Info.TargetURL))

	// IPC socket so 'cyroid status', 'cyroid reload', and 'cyroid down' can
	// reach this session.
	reloadCh := make(chan struct{}, 1)
	handler := &sessionHandler{
		sess:     sess,
		host:     hostName,
		vm:       vmID,
		ref:      ref,
		reloadCh: reloadCh,
		shutdown: stop,
	}
	if runDir, err := hostcfg.RunDir(); err == nil {
		_ = os.MkdirAll(runDir, 0700)
	}
	sockPath, err := daemon.SocketPath(hostName)
	if err != nil {
		return err
	}
	daemon.RemoveStaleSocket(sockPath)
	srv := daemon.NewServer(sockPath, handler)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	g, gctx := errgroup.WithContext(runCtx)

	// Control channel lifecycle: read until the connection drops, then wait
	// for a reload request (or shutdown) and redial.
	g.Go(func() error {
		for {
			ch := ref.get()
			runErr := ch.Run(gctx, sess.HandleMessage)
			if gctx.Err() != nil {
				return nil
			}
			select {
			case <-reloadCh:
				if err := sess.Reload(gctx); err != nil {
					_, _ = fmt.Fprintln(os.Stderr, ui.Warn(fmt.Sprintf("reload: %v", err)))
					continue
				}
				if err := dialAndLoad(gctx, sess, ref, false); err != nil {
					_, _ = fmt.Fprintln(os.Stderr, ui.Warn(fmt.Sprintf("reload: %v", err)))
					continue
				}
				fmt.Println(ui.StepOK("Console reloaded"))
			default:
				sess.HandleLoadError()
				if runErr != nil {
					_, _ = fmt.Fprintln(os.Stderr, ui.Error(fmt.Sprintf("console channel lost: %v", runErr)))
				}
				// Stay up so 'cyroid reload' can recover the session.
				select {
				case <-gctx.Done():
					return nil
				case <-reloadCh:
					if err := sess.Reload(gctx); err != nil {
						continue
					}
					if err := dialAndLoad(gctx, sess, ref, false); err != nil {
						continue
					}
					fmt.Println(ui.StepOK("Console reloaded"))
				}
			}
		}
	})

	if pr.ClipboardSync && !c.NoClipboard {
		src := clipboard.NewSource(clipboard.WithInterval(pr.ClipboardPollInterval()))
		g.Go(func() error {
			err := src.Run(gctx, func(snap clipboard.Snapshot) {
				sess.ObserveClipboard(snap.Text, snap.CopiedAt)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		fmt.Println(ui.StepInfo(fmt.Sprintf("Clipboard sync on (every %s)", pr.ClipboardPollInterval())))
	}

	if pr.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, pr.MetricsAddr) })
		if globals.Verbose {
			fmt.Println(ui.StepInfo("Metrics on " + pr.MetricsAddr))
		}
	}

	fmt.Println(ui.StepOK("Session up. Press Ctrl-C to stop"))
	<-runCtx.Done()
	if ch := ref.get(); ch != nil {
		_ = ch.Close()
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println(ui.StepRun("Session closed"))
	return nil
}

// dialAndLoad dials the console control channel, retrying until it answers,
// the soft deadline fires, or ctx is cancelled. On success it attaches the
// injector and marks the session loaded. With keepWaiting set, a soft timeout
// does not abort the retry loop (the user chose to wait it out).
func dialAndLoad(ctx context.Context, sess *console.Session, ref *chanRef, keepWaiting bool) error {
	for {
		snap := sess.Snapshot()
		if snap.Info.ChannelURL == "" {
			return fmt.Errorf("no console channel URL")
		}
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		ch, err := channel.Dial(dialCtx, snap.Info.ChannelURL)
		cancel()
		if err == nil {
			if old := ref.get(); old != nil {
				_ = old.Close()
			}
			ref.set(ch)
			sess.Attach(inject.New(ch.ScriptTarget()))
			sess.HandleLoad()
			return nil
		}
		if !keepWaiting && sess.Snapshot().Status == console.StatusTimeout {
			return errConsoleSlow
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// promptTimeout asks the user what to do after a soft connect timeout.
func promptTimeout() (string, error) {
	var choice string
	err := huh.NewSelect[string]().
		Title("The console is taking longer than expected.").
		Options(
			huh.NewOption("Keep waiting", "wait"),
			huh.NewOption("Retry from scratch", "retry"),
			huh.NewOption("Give up", "quit"),
		).
		Value(&choice).
		Run()
	if err != nil {
		return "", err
	}
	return choice, nil
}

// sessionHandler serves the IPC surface for a live session.
type sessionHandler struct {
	sess     *console.Session
	host     string
	vm       string
	ref      *chanRef
	reloadCh chan struct{}
	shutdown context.CancelFunc
}

func (h *sessionHandler) HandleStatus() *daemon.ConsoleStatus {
	snap := h.sess.Snapshot()
	return &daemon.ConsoleStatus{
		PID:            os.Getpid(),
		Host:           h.host,
		VM:             h.vm,
		Status:         snap.Status.String(),
		LastError:      snap.LastError,
		ConsoleURL:     snap.Info.TargetURL,
		BridgeInjected: snap.Bridge.Injected,
		BridgeReady:    snap.Bridge.Ready,
		Synced:         snap.Synced,
		LastSyncedAt:   snap.LastSyncedAt,
		StartedAt:      snap.StartedAt,
	}
}

func (h *sessionHandler) HandleReload() error {
	select {
	case h.reloadCh <- struct{}{}:
	default:
	}
	// Closing the live channel unblocks its read loop, which then picks up
	// the reload request.
	if ch := h.ref.get(); ch != nil {
		_ = ch.Close()
	}
	return nil
}

func (h *sessionHandler) HandleShutdown() {
	h.shutdown()
}
