package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/daemon"
	"github.com/1broseidon/stickyfollow/internal/hotkeys"
	"github.com/1broseidon/stickyfollow/internal/ipc"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/runtimepath"
	"github.com/1broseidon/stickyfollow/internal/store"
)

const reloadTimeout = 5 * time.Second

var daemonOpts struct {
	headless bool
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the follow engine",
	Long: `Run the follow engine in the foreground.

The daemon loads the stickers file, shows every visible sticker, keeps
following stickers attached to their windows and serves the IPC socket used
by the other commands. SIGHUP reloads the stickers file.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonOpts.headless, "headless", false,
		"Run without a windowing backend (no overlays are drawn)")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}

	pidPath, err := runtimepath.PIDPath()
	if err != nil {
		return err
	}
	releasePID, err := acquirePIDFile(pidPath)
	if err != nil {
		return err
	}
	defer releasePID()

	st, err := store.Open(cfg.StickersFile)
	if err != nil {
		return fmt.Errorf("failed to open stickers file: %w", err)
	}
	defer st.Close()
	logger.Info("stickers loaded", "path", st.Path(), "count", st.Count())

	if cfg.WatchStickers {
		watcher, err := store.NewFileWatcher(st, logger)
		if err != nil {
			logger.Warn("stickers file watcher disabled", "error", err)
		} else if err := watcher.Start(); err != nil {
			logger.Warn("stickers file watcher disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	backend, err := platform.Open(platform.Options{
		Display:       cfg.Display,
		DisplayScales: cfg.DisplayScales,
		Logger:        logger,
		Headless:      daemonOpts.headless,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to display: %w", err)
	}
	factory, eventLoop := newFactory(backend, logger)

	engine, err := daemon.New(daemon.Config{
		Backend:               backend,
		Factory:               factory,
		Store:                 st,
		DefaultPollIntervalMs: cfg.DefaultPollIntervalMs,
		MessagePollIntervalMs: cfg.MessagePollIntervalMs,
		MessageTimeout:        time.Duration(cfg.Message.TimeoutMs) * time.Millisecond,
		Logger:                logger,
	})
	if err != nil {
		backend.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Run(ctx)
	}()

	hk := hotkeys.NewHandler(backend, engine, cfg.HotkeySticker, logger)
	if err := hk.Register(cfg.LockHotkey, cfg.UnlockHotkey); errors.Is(err, hotkeys.ErrNoX11) {
		logger.Info("hotkeys disabled", "backend", backend.Name())
	} else if err != nil {
		logger.Warn("failed to register hotkeys", "error", err)
	}

	ipcServer, err := ipc.NewServer(engine, logger)
	if err != nil {
		stop()
		<-engineDone
		backend.Close()
		return fmt.Errorf("failed to create IPC server: %w", err)
	}
	if err := ipcServer.Start(); err != nil {
		stop()
		<-engineDone
		backend.Close()
		return fmt.Errorf("failed to start IPC server: %w", err)
	}

	if eventLoop != nil {
		go eventLoop()
	}
	logger.Info("stickyfollow daemon started",
		"version", version,
		"backend", backend.Name(),
		"socket", ipcServer.SocketPath(),
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var runErr error
wait:
	for {
		select {
		case <-hup:
			logger.Info("SIGHUP received, reloading stickers")
			rctx, cancel := context.WithTimeout(ctx, reloadTimeout)
			if err := engine.Reload(rctx); err != nil {
				logger.Error("reload failed", "error", err)
			}
			cancel()
		case runErr = <-engineDone:
			break wait
		}
	}

	ipcServer.Stop()
	backend.Close()
	logger.Info("stickyfollow daemon stopped")
	return runErr
}
