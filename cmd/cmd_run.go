package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"autoinput/internal/api"
	"autoinput/internal/config"
	"autoinput/internal/hotkey"
	"autoinput/internal/input"
	xlog "autoinput/internal/log"
	"autoinput/internal/metrics"
	"autoinput/internal/notify"
	"autoinput/internal/osutils"
	"autoinput/internal/runner"
	"autoinput/internal/tray"
	"autoinput/internal/view"
)

type runOptions struct {
	dryRun   bool
	headless bool
	watch    bool
	listen   string
	token    string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the input controller with hotkey, tray and local API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runApp(ctx, runOpts)
	},
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "log inputs instead of injecting them")
	f.BoolVar(&runOpts.headless, "headless", false, "no tray and no dialogs; questions are answered with No")
	f.BoolVar(&runOpts.watch, "watch", true, "reload the config file when it changes while idle")
	f.StringVar(&runOpts.listen, "listen", "127.0.0.1:7391", "API listen address (empty disables the API)")
	f.StringVar(&runOpts.token, "token", os.Getenv("AUTOINPUT_TOKEN"), "bearer token required by the API")
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runApp(ctx context.Context, opts runOptions) error {
	logger := xlog.WithComponent("main")
	logger.Info().Str("event", "app.starting").Str("version", version).Bool("dry_run", opts.dryRun).Msg("AutoInput starting")

	configs, err := config.NewManager(cfgPath)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewDialog(view.ShellText(version))
	if opts.headless {
		notifier = notify.NewLog(notify.No)
	}

	var sink input.Sink = input.NewInjector()
	if !opts.dryRun && !osutils.IsElevated() {
		logger.Info().Str("event", "input.not_elevated").Msg(osutils.ElevationHint)
	}
	if opts.dryRun {
		sinkLogger := xlog.WithComponent("dry-run")
		sink = input.NewRecorder(&sinkLogger)
	}

	loop := runner.NewLoop()
	var ctrl *runner.Controller
	hotkeys := hotkey.NewManager(func() {
		// Hook callbacks must not block.
		go loop.Do(func() {
			if err := ctrl.Toggle(); err != nil {
				logger.Warn().Err(err).Str("event", "hotkey.toggle_failed").Msg("toggle failed")
			}
		})
	})
	ctrl = runner.New(runner.Deps{
		Timers:   loop,
		Sink:     sink,
		Hotkeys:  hotkeys,
		Notifier: notifier,
	})

	// The loop is not running yet, so the controller may be used directly.
	loadStartup(ctrl, configs)
	if err := hotkeys.Start(); err != nil {
		logger.Warn().Err(err).Str("event", "hotkey.start_failed").Msg("hotkey hook failed to start")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var srv *api.Server
	if opts.listen != "" {
		srv = api.NewServer(api.Options{
			Dispatcher: loop,
			Controller: ctrl,
			Configs:    configs,
			Token:      opts.token,
		})
		srv.Hub().Publish(api.BuildStatus(ctrl))
	}

	var t *tray.Tray
	title := view.ShellText(version)
	if !opts.headless {
		t = tray.New(title, trayActions(ctx, cancel, loop, ctrl, configs, notifier))
		t.Update(tray.Describe(title, ctrl.Status()))
	}

	loop.AfterEach(func() {
		if srv != nil {
			srv.Hub().Publish(api.BuildStatus(ctrl))
		}
		if t != nil {
			t.Update(tray.Describe(title, ctrl.Status()))
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	g.Go(func() error {
		return loop.Run(loopCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Release a held target before the loop exits.
		_ = loop.Call(context.Background(), func() error {
			ctrl.Stop("shutdown")
			return nil
		})
		stopLoop()
		return nil
	})

	if srv != nil {
		g.Go(func() error {
			srv.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, opts.listen)
		})
	}

	if opts.watch {
		err := configs.Watch(gctx, func(cfg config.Config) {
			loop.Do(func() { reloadConfig(ctrl, cfg) })
		})
		if err != nil {
			logger.Warn().Err(err).Str("event", "config.watch_failed").Msg("config hot reload disabled")
		}
	}

	if t != nil {
		g.Go(func() error {
			<-gctx.Done()
			t.Stop()
			return nil
		})
		// The tray must own the main goroutine.
		t.Run()
		cancel()
	}

	err = g.Wait()
	logger.Info().Str("event", "app.stopped").Msg("AutoInput stopped")
	return err
}

// loadStartup applies the managed config file and then the file in the
// configured config folder, if any. Load errors keep the previous settings.
func loadStartup(ctrl *runner.Controller, configs *config.Manager) {
	logger := xlog.WithComponent("main")

	cfg, err := configs.Load()
	if err == nil {
		err = ctrl.Apply(cfg)
	}
	metrics.IncConfigLoad("managed", err)
	if err != nil {
		logger.Warn().Err(err).Str("event", "config.load_failed").Msg("using default settings")
		_ = ctrl.Apply(config.Default())
	}

	if path := config.StartupPath(ctrl.Snapshot()); path != "" {
		folderCfg, err := config.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Info().Str("event", "config.folder_empty").Str("path", path).Msg("no config in config folder")
		case err != nil:
			metrics.IncConfigLoad("folder", err)
			logger.Warn().Err(err).Str("event", "config.load_failed").Str("path", path).Msg("ignoring config folder file")
		default:
			err = ctrl.Apply(folderCfg)
			metrics.IncConfigLoad("folder", err)
			if err != nil {
				logger.Warn().Err(err).Str("event", "config.load_failed").Str("path", path).Msg("ignoring config folder file")
			}
		}
	}
	ctrl.MarkSaved()
}

// reloadConfig applies a config file changed on disk. Changes are ignored
// while a run is active or pending.
func reloadConfig(ctrl *runner.Controller, cfg config.Config) {
	logger := xlog.WithComponent("main")
	if ctrl.State() != runner.Idle {
		logger.Info().Str("event", "config.reload_skipped").Str("state", ctrl.State().String()).Msg("config changed while active, not applied")
		return
	}
	err := ctrl.Apply(cfg)
	metrics.IncConfigLoad("watch", err)
	if err != nil {
		logger.Warn().Err(err).Str("event", "config.reload_failed").Msg("config reload rejected")
		return
	}
	ctrl.MarkSaved()
}

// saveConfig persists the current settings. It must run on the loop.
func saveConfig(ctrl *runner.Controller, configs *config.Manager) error {
	_, err := configs.Persist(ctrl.Snapshot())
	metrics.IncConfigSave(err)
	if err != nil {
		return err
	}
	ctrl.MarkSaved()
	return nil
}

func trayActions(ctx context.Context, quit context.CancelFunc, loop *runner.Loop, ctrl *runner.Controller, configs *config.Manager, n notify.Notifier) tray.Actions {
	logger := xlog.WithComponent("tray")
	save := func() error {
		return loop.Call(ctx, func() error { return saveConfig(ctrl, configs) })
	}
	return tray.Actions{
		Toggle: func() {
			err := loop.Call(ctx, ctrl.Toggle)
			if err != nil && !errors.Is(err, runner.ErrEmptySequence) {
				logger.Warn().Err(err).Str("event", "tray.toggle_failed").Msg("toggle failed")
			}
		},
		Reset: func() {
			if !tray.ConfirmReset(n) {
				return
			}
			if err := loop.Call(ctx, ctrl.Reset); err != nil {
				n.Warn("Reset is only possible while stopped.")
			}
		},
		Save: func() {
			if err := save(); err != nil {
				n.Warn("Could not save the configuration: " + err.Error())
			}
		},
		Quit: func() {
			var dirty bool
			_ = loop.Call(ctx, func() error {
				dirty = ctrl.Dirty()
				return nil
			})
			if tray.ConfirmQuit(dirty, n, save) {
				quit()
			}
		},
	}
}
