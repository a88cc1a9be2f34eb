package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cyclemine/internal/api"
	"cyclemine/internal/config"
	"cyclemine/internal/discovery"
	"cyclemine/internal/logging"
	"cyclemine/internal/tui"
	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/miner"
)

var (
	configPath = flag.String("config", "cyclemine.json", "path to JSON config file")
	pluginDir  = flag.String("plugin-dir", "", "plugin directory (overrides config)")
	pluginName = flag.String("plugin", "", "plugin file name inside plugin-dir (overrides config)")

	listMode = flag.Bool("list", false, "list available plugins and host capabilities, then exit")
	jsonOut  = flag.Bool("json", false, "emit -list output as JSON")

	mineMode   = flag.Bool("mine", false, "run one synchronous solve and exit")
	headerHex  = flag.String("header", "", "hex header digest for -mine (random when empty)")
	preNonce   = flag.String("pre", "", "hex pre-nonce header fragment for queue mode")
	postNonce  = flag.String("post", "", "hex post-nonce header fragment for queue mode")
	jobID      = flag.Uint("job-id", 1, "job identifier for queue mode")
	difficulty = flag.Uint64("difficulty", 0, "target difficulty (overrides config when non-zero)")
	duration   = flag.Duration("duration", 0, "stop queue mode after this long (0 = until signal)")

	apiAddr  = flag.String("api", "", "status API listen address, e.g. :8080 (overrides config)")
	useTUI   = flag.Bool("tui", false, "show the live terminal monitor")
	logLevel = flag.String("log-level", "", "zap log level (overrides config)")
)

func main() {
	// .env is optional; flags and CYCLEMINE_* env vars win over it.
	_ = godotenv.Load()
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	if *listMode {
		if err := runList(cfg); err != nil {
			log.Errorw("plugin discovery failed", "error", err)
			os.Exit(1)
		}
		return
	}

	path, err := cfg.ResolvedPluginPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	m, err := miner.New(miner.Config{
		PluginPath: path,
		Parameters: cfg.Parameters,
		Logger:     log,
	})
	if err != nil {
		log.Errorw("failed to construct miner", "plugin", path, "error", err)
		os.Exit(1)
	}

	name, desc, err := m.Describe()
	if err == nil {
		log.Infow("plugin loaded", "name", name, "description", desc)
	}

	if *mineMode {
		err = runSyncMine(m)
	} else {
		err = runQueueMine(cfg, m, name, log)
	}
	if err != nil {
		log.Errorw("mining failed", "error", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *pluginDir != "" {
		cfg.PluginDir = *pluginDir
	}
	if *pluginName != "" {
		cfg.PluginName = *pluginName
	}
	if *difficulty != 0 {
		cfg.Difficulty = *difficulty
	}
	if *apiAddr != "" {
		cfg.APIAddr = *apiAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
}

// runList prints the discovery report: every plugin in the configured
// directory plus host capabilities.
func runList(cfg *config.Config) error {
	scanner := discovery.NewScanner(logging.Nop())
	plugins, err := scanner.Scan(cfg.PluginDir, cfg.PluginName)
	if err != nil {
		return err
	}
	host, err := discovery.HostInfo()
	if err != nil {
		return err
	}

	if *jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"host":    host,
			"plugins": plugins,
		})
	}

	fmt.Printf("Host: %s (%d cores, %d MB)\n\n",
		host.CPUModel, host.LogicalCores, host.TotalMemoryMB)
	if len(plugins) == 0 {
		fmt.Printf("No plugins found in %s\n", cfg.PluginDir)
		return nil
	}
	for _, p := range plugins {
		if p.Error != "" {
			fmt.Printf("%-30s ERROR: %s\n", p.FileName, p.Error)
			continue
		}
		fmt.Printf("%-30s %s - %s\n", p.FileName, p.Name, p.Description)
		for _, param := range p.Parameters {
			fmt.Printf("    %-20s default=%d range=[%d,%d] %s\n",
				param.Name, param.DefaultVal, param.MinVal, param.MaxVal, param.Description)
		}
	}
	return nil
}

// runSyncMine performs a single one-shot solve.
func runSyncMine(m *miner.Miner) error {
	defer m.Close()

	var header []byte
	if *headerHex != "" {
		var err error
		header, err = hex.DecodeString(*headerHex)
		if err != nil {
			return fmt.Errorf("decoding -header: %w", err)
		}
	} else {
		header = make([]byte, core.DigestSize)
		if _, err := rand.Read(header); err != nil {
			return err
		}
		fmt.Printf("Mining random header %x\n", header)
	}

	start := time.Now()
	var sol core.Solution
	found, err := m.Mine(header, &sol)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("No solution found (%.2fs)\n", time.Since(start).Seconds())
		return nil
	}
	fmt.Printf("Solution found in %.2fs: %s\n", time.Since(start).Seconds(), sol)
	return nil
}

// runQueueMine starts an asynchronous job and monitors it until a signal,
// the configured duration, or the TUI quits.
func runQueueMine(cfg *config.Config, m *miner.Miner, pluginName string, log *zap.SugaredLogger) error {
	handle, err := m.Notify(uint32(*jobID), *preNonce, *postNonce, cfg.Difficulty)
	if err != nil {
		m.Close()
		return err
	}

	monitor := newJobMonitor(pluginName, handle, log)
	go monitor.sample(time.Second)

	if cfg.APIAddr != "" {
		server := api.NewServer(monitor, log)
		go func() {
			if err := server.Run(cfg.APIAddr); err != nil {
				log.Errorw("status API exited", "error", err)
			}
		}()
	}

	if *useTUI {
		if err := tui.Run(monitor); err != nil {
			log.Errorw("monitor UI exited", "error", err)
		}
		handle.Stop()
	} else {
		waitForStop(handle, log)
	}

	handle.Stop()
	handle.Wait()
	m.Close()

	if err := handle.Err(); err != nil {
		return err
	}
	report(monitor, handle)
	return nil
}

func waitForStop(handle *miner.JobHandle, log *zap.SugaredLogger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	select {
	case sig := <-sigCh:
		log.Infow("signal received, stopping job", "signal", sig.String())
	case <-timeout:
		log.Infow("configured duration elapsed, stopping job")
	case <-handle.Done():
		log.Infow("job loop exited on its own")
	}
}

func report(monitor *jobMonitor, handle *miner.JobHandle) {
	stats := handle.Stats()
	fmt.Printf("Job %d finished: pushed=%d popped=%d accepted=%d rejected=%d uptime=%s\n",
		handle.JobID(), stats.CandidatesPushed, stats.SolutionsPopped,
		stats.SolutionsAccepted, stats.SolutionsRejected,
		stats.Uptime.Truncate(time.Second))
	for i, sol := range monitor.Solutions() {
		fmt.Printf("Solution %d (nonce %d): %s\n", i+1, sol.NonceUint64(), sol)
	}
}
