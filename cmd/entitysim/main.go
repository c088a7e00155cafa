package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/l1jgo/entitycore/internal/config"
	"github.com/l1jgo/entitycore/internal/core/ecs"
	"github.com/l1jgo/entitycore/internal/core/event"
	coresys "github.com/l1jgo/entitycore/internal/core/system"
	"github.com/l1jgo/entitycore/internal/data"
	"github.com/l1jgo/entitycore/internal/entity"
	"github.com/l1jgo/entitycore/internal/system"
	"github.com/l1jgo/entitycore/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            entitysim  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     identity registry · reactive filters  \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
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

// ── Simulation ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/entitysim.toml"
	if p := os.Getenv("ENTITYSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Optional profiling
	if opt, ok := profileMode(cfg.Profile.Mode); ok {
		p := profile.Start(opt, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook, profile.Quiet)
		defer p.Stop()
	}

	printBanner()

	// 4. Create world and filters
	printSection("world")
	ecsWorld := ecs.NewWorld[*entity.Entity](cfg.World.InitialCapacity, log)
	ecsWorld.Registry().SetChecked(cfg.World.Checked)
	printStat("initial capacity", ecsWorld.Registry().Capacity())

	bus := event.NewBus()
	state := world.NewState(ecsWorld, bus, log)
	defer state.Close()
	stats := world.NewStats(bus)

	defs := world.Definitions{
		FiltersPath: cfg.Filters.Path,
		ScriptsDir:  cfg.Scripting.Dir,
	}
	if err := state.Reload(defs); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	printStat("filters", state.FilterCount())
	for _, f := range state.Filters() {
		log.Debug("filter ready",
			zap.String("name", f.Name()),
			zap.Stringers("reads", f.Dependencies()))
	}
	printOK("filters built")
	fmt.Println()

	// 5. Create systems and register with runner
	rng := rand.New(rand.NewSource(cfg.Sim.Seed))
	dispatchSys := system.NewDispatchSystem(bus)
	mutateSys := system.NewMutateSystem(ecsWorld, cfg.Sim, rng)
	cleanupSys := system.NewCleanupSystem(ecsWorld)
	auditSys := system.NewAuditSystem(state, cfg.Sim.AuditEvery, log)

	runner := coresys.NewRunner()
	runner.Register(dispatchSys)
	runner.Register(system.NewSpawnSystem(ecsWorld, cfg.Sim, rng))
	runner.Register(mutateSys)
	runner.Register(cleanupSys)
	runner.Register(auditSys)

	var reloadSys *system.ReloadSystem
	if cfg.Filters.Watch {
		dirs := []string{filepath.Dir(cfg.Filters.Path)}
		if cfg.Scripting.Dir != "" {
			dirs = append(dirs, cfg.Scripting.Dir)
		}
		watcher, err := data.NewWatcher(dirs...)
		if err != nil {
			return fmt.Errorf("watch definitions: %w", err)
		}
		defer watcher.Close()
		reloadSys = system.NewReloadSystem(state, defs, watcher, log)
		runner.Register(reloadSys)
		printReady(fmt.Sprintf("watching %s", strings.Join(dirs, ", ")))
	}

	// 6. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	var tickC <-chan time.Time
	if cfg.Sim.TickRate > 0 {
		ticker := time.NewTicker(cfg.Sim.TickRate)
		defer ticker.Stop()
		tickC = ticker.C
	}

	printSection("running")
	printReady(fmt.Sprintf("tick loop started (ticks: %d, rate: %s)", cfg.Sim.Ticks, cfg.Sim.TickRate))
	fmt.Println()

	start := time.Now()
loop:
	for cfg.Sim.Ticks == 0 || runner.Ticks() < uint64(cfg.Sim.Ticks) {
		if tickC != nil {
			select {
			case <-tickC:
			case sig := <-shutdownCh:
				log.Info("shutdown signal received", zap.String("signal", sig.String()))
				break loop
			}
		} else {
			select {
			case sig := <-shutdownCh:
				log.Info("shutdown signal received", zap.String("signal", sig.String()))
				break loop
			default:
			}
		}
		runner.Tick(cfg.Sim.TickRate)
		if runner.Ticks()%100 == 0 {
			log.Info("tick",
				zap.Uint64("tick", runner.Ticks()),
				zap.Int("alive", ecsWorld.Registry().Count()),
				zap.Int("capacity", ecsWorld.Registry().Capacity()))
		}
	}
	elapsed := time.Since(start)

	// 7. Final audit and summary
	if err := state.Audit(); err != nil {
		log.Error("final audit failed", zap.Error(err))
	}

	printSection("summary")
	spawned, destroyed := cleanupSys.Totals()
	auditRuns, auditFailures := auditSys.Runs()
	printStat("ticks", int(runner.Ticks()))
	printStat("spawned", spawned)
	printStat("destroyed", destroyed)
	printStat("alive", ecsWorld.Registry().Count())
	printStat("registry capacity", ecsWorld.Registry().Capacity())
	printStat("registry resizes", ecsWorld.Registry().Resizes())
	printStat("mutations", mutateSys.Mutations())
	printStat("events delivered", dispatchSys.Delivered())
	printStat("audits", auditRuns)
	printStat("audit failures", auditFailures)
	if reloadSys != nil {
		printStat("reloads", reloadSys.Reloads())
	}
	fmt.Println()

	printSection("filters")
	for _, f := range state.Filters() {
		printStat(f.Name(), f.Count())
	}
	for _, fs := range stats.Snapshot() {
		log.Info("filter churn",
			zap.String("filter", fs.Name),
			zap.Int("entered", fs.Entered),
			zap.Int("left", fs.Left))
	}
	fmt.Println()
	printOK(printer.Sprintf("done in %v", elapsed.Round(time.Millisecond)))

	if auditFailures > 0 {
		return fmt.Errorf("%d audits failed", auditFailures)
	}
	return nil
}

func profileMode(mode string) (func(*profile.Profile), bool) {
	switch strings.ToLower(mode) {
	case "cpu":
		return profile.CPUProfile, true
	case "mem":
		return profile.MemProfile, true
	case "allocs":
		return profile.MemProfileAllocs, true
	case "block":
		return profile.BlockProfile, true
	case "mutex":
		return profile.MutexProfile, true
	case "trace":
		return profile.TraceProfile, true
	default:
		return nil, false
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
