// Cosmic Isles is a quest progression engine: five islands, three rooms
// each, one badge per island and a minted star at the end.
// Usage: cosmicisles [--version] [--config <file>] [--plain] [--script <file>] [--trace] [--new] [--serve] [game_directory]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/cli"
	"github.com/nathoo/cosmicisles/config"
	"github.com/nathoo/cosmicisles/engine"
	"github.com/nathoo/cosmicisles/engine/save"
	"github.com/nathoo/cosmicisles/loader"
	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/mint"
	"github.com/nathoo/cosmicisles/server"
	"github.com/nathoo/cosmicisles/store"
	"github.com/nathoo/cosmicisles/telemetry"
	"github.com/nathoo/cosmicisles/tui"
	"github.com/nathoo/cosmicisles/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: cosmicisles [--version] [--config <file>] [--plain] [--script <file>] [--trace] [--new] [--serve] [game_directory]"

type options struct {
	plain      bool
	trace      bool
	serve      bool
	fresh      bool
	configFile string
	scriptFile string
	gameDir    string
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	if opts == nil {
		fmt.Printf("cosmicisles %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if err := run(*opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs returns nil options for --version.
func parseArgs(args []string) (*options, error) {
	var o options
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			return nil, nil
		case "--plain":
			o.plain = true
		case "--trace":
			o.trace = true
		case "--serve":
			o.serve = true
		case "--new":
			o.fresh = true
		case "--script", "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a file path", args[i])
			}
			i++
			if args[i-1] == "--script" {
				o.scriptFile = args[i]
			} else {
				o.configFile = args[i]
			}
		default:
			if o.gameDir == "" {
				o.gameDir = args[i]
			}
		}
	}
	return &o, nil
}

func run(opts options) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.gameDir != "" {
		cfg.GameDir = opts.gameDir
	}
	if opts.scriptFile != "" {
		opts.plain = true
		cfg.Store.Backend = store.BackendMemory
	}
	interactive := !opts.plain && !opts.serve && isTerminal()

	logOut, closeLog := logOutput(cfg, interactive)
	defer closeLog()
	log := logger.New(cfg.Log.Level, cfg.Log.Format, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defs, err := loader.Load(cfg.GameDir, log.WithField("component", "loader"))
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store.Options(), log.WithField("component", "store"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	gw := save.NewGateway(st, log.WithField("component", "save"))
	autosaver := save.NewAutosaver(gw, cfg.Autosave, log.WithField("component", "autosave"))

	sink, err := telemetry.Open(ctx, telemetry.Options{
		Sink:      cfg.Telemetry.Sink,
		Dir:       cfg.Telemetry.Dir,
		RedisAddr: cfg.Telemetry.RedisAddr,
		Channel:   cfg.Telemetry.Channel,
	}, log.WithField("component", "telemetry"))
	if err != nil {
		log.WithError(err).Error("telemetry unavailable, continuing without it")
		sink = telemetry.Nop{}
	}
	defer sink.Close()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	eng := engine.New(defs,
		engine.WithLogger(log.WithField("component", "engine")),
		engine.WithAutosaver(autosaver),
		engine.WithReporter(sink),
		engine.WithMinter(mint.New(cfg.Mint.URL, cfg.Mint.Timeout, log.WithField("component", "mint"))),
		engine.WithSeed(seed),
		engine.WithPlayer(cfg.Player.Name, cfg.Player.Avatar),
		engine.WithTuning(cfg.Tuning),
	)
	defer eng.Close()

	opening, err := begin(ctx, eng, opts.fresh || opts.scriptFile != "")
	if err != nil {
		return err
	}

	switch {
	case opts.serve:
		return serve(ctx, eng, cfg.Server.Addr, log)

	case opts.scriptFile != "":
		f, err := os.Open(opts.scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		printBanner(defs.Game)
		c := cli.New(eng, defs)
		c.In = f
		c.EchoInput = true
		c.Trace = opts.trace
		c.Run(ctx, opening)
		return nil

	case !interactive:
		printBanner(defs.Game)
		c := cli.New(eng, defs)
		c.Trace = opts.trace
		c.Run(ctx, opening)
		return nil
	}

	return tui.Run(ctx, eng, defs, opening)
}

// begin resumes saved progress unless fresh is set or nothing is saved.
func begin(ctx context.Context, eng *engine.Engine, fresh bool) (types.Result, error) {
	if fresh {
		return eng.NewGame(ctx), nil
	}
	res, err := eng.Load(ctx)
	switch {
	case errors.Is(err, engine.ErrNoSave):
		return eng.Start(), nil
	case err != nil:
		return types.Result{}, fmt.Errorf("loading saved progress: %w", err)
	}
	return res, nil
}

func serve(ctx context.Context, eng *engine.Engine, addr string, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.New(eng, log)
	go srv.Run(ctx)

	httpSrv := &http.Server{Addr: addr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("websocket bridge listening")
	err := httpSrv.ListenAndServe()

	// The owner goroutine makes the final save.
	cancel()
	<-srv.Done()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logOutput keeps logs off the terminal while the TUI owns it.
func logOutput(cfg config.Config, interactive bool) (io.Writer, func()) {
	if !interactive {
		return os.Stderr, func() {}
	}
	dir := cfg.Store.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "cosmicisles.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}

func printBanner(g types.GameDef) {
	fmt.Printf("%s v%s by %s\n\n", g.Title, g.Version, g.Author)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
