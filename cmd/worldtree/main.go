package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/worldtree/internal/clock"
	"github.com/l1jgo/worldtree/internal/config"
	"github.com/l1jgo/worldtree/internal/core/event"
	coresys "github.com/l1jgo/worldtree/internal/core/system"
	"github.com/l1jgo/worldtree/internal/data"
	"github.com/l1jgo/worldtree/internal/handler"
	gonet "github.com/l1jgo/worldtree/internal/net"
	"github.com/l1jgo/worldtree/internal/net/packet"
	"github.com/l1jgo/worldtree/internal/parse"
	"github.com/l1jgo/worldtree/internal/persist"
	"github.com/l1jgo/worldtree/internal/scripting"
	"github.com/l1jgo/worldtree/internal/system"
	"github.com/l1jgo/worldtree/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(worldName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              worldtree  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mworld:\033[0m %s\n\n", worldName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation logic ─────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch cfg.Profile.Mode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook, profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	// 3. Scripts and action classes
	factories := world.NewFactories()
	engine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	classCount := 0
	if cfg.World.Classes != "" {
		classes, err := data.LoadClassTable(cfg.World.Classes)
		if err != nil {
			return fmt.Errorf("load classes: %w", err)
		}
		if err := classes.Register(factories, engine); err != nil {
			return fmt.Errorf("register classes: %w", err)
		}
		classCount = classes.Count()
	}

	// 4. Load the world tree
	w, err := parse.LoadWorld(cfg.World.File, factories, log)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	defer w.Destroy()

	printBanner(w.Name())
	printSection("world")
	printStat("script classes", classCount)
	printStat("action classes", factories.Actions.Len())
	printStat("sectors", len(w.Sectors()))
	entities := 0
	for _, s := range w.Sectors() {
		entities += len(s.Entities())
	}
	printStat("entities", entities)
	printStat("tree nodes", w.Arena().Live())

	bus := event.NewBus()
	w.SetBus(bus)
	system.LogEvents(bus, log)

	ws := world.NewWorldState(factories.Actions)
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewUpdateSystem(w, ws, clock.New(), log))
	runner.Register(system.NewCleanupSystem(w, log))

	// 5. Snapshot store
	var persistSys *system.PersistenceSystem
	if cfg.Database.DSN != "" {
		printSection("snapshots")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		repo := persist.NewSnapshotRepo(db)
		last, err := repo.Latest(ctx, w.Name())
		if err != nil {
			return fmt.Errorf("latest snapshot: %w", err)
		}
		if last != nil {
			log.Info("previous snapshot",
				zap.Uint64("tick", last.Tick),
				zap.String("digest", last.Digest),
				zap.Time("saved_at", last.CreatedAt),
			)
		}
		persistSys = system.NewPersistenceSystem(w, ws, repo, log, cfg.Database.SnapshotInterval)
		runner.Register(persistSys)
	}

	// 6. Inspector
	var netServer *gonet.Server
	if cfg.Inspector.Enabled {
		pktReg := packet.NewRegistry(log)
		handler.RegisterAll(pktReg, &handler.Deps{World: w, Log: log})

		netServer, err = gonet.NewServer(cfg.Inspector.BindAddress, gonet.ServerOptions{
			InQueueSize:  cfg.Inspector.InQueueSize,
			OutQueueSize: cfg.Inspector.OutQueueSize,
			MaxSessions:  cfg.Inspector.MaxSessions,
			Timeouts:     gonet.Timeouts{Read: cfg.Inspector.ReadTimeout, Write: cfg.Inspector.WriteTimeout},
		}, log)
		if err != nil {
			return fmt.Errorf("inspector server: %w", err)
		}
		go netServer.AcceptLoop()

		store := gonet.NewSessionStore()
		runner.Register(system.NewInputSystem(netServer, pktReg, store, cfg.Inspector.MaxPacketsPerTick, log))
		runner.Register(system.NewOutputSystem(store))
	}

	// 7. Start the tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	// Inspector requests are polled between ticks.
	var poll <-chan time.Time
	if netServer != nil {
		pollTicker := time.NewTicker(2 * time.Millisecond)
		defer pollTicker.Stop()
		poll = pollTicker.C
	}

	printSection("ready")
	if netServer != nil {
		printReady(fmt.Sprintf("inspector listening on %s", netServer.Addr().String()))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	shutdown := func(reason string) error {
		log.Info("stopping", zap.String("reason", reason), zap.Uint64("ticks", ws.Tick))
		if persistSys != nil {
			persistSys.Save()
		}
		if netServer != nil {
			netServer.Shutdown()
		}
		log.Info("stopped")
		return nil
	}

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
			if cfg.Simulation.MaxTicks > 0 && ws.Tick >= cfg.Simulation.MaxTicks {
				return shutdown("max ticks reached")
			}
		case <-poll:
			runner.TickPhase(coresys.PhaseInput, 0)
		case sig := <-shutdownCh:
			return shutdown(sig.String())
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
