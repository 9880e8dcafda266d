// candlectl is the command line tool for candlestore data directories.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage"
	"github.com/xtxerr/candlestore/internal/storage/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "config file path")
	dataDir := flag.String("data", "", "data directory (overrides config and CANDLESTORE_DATA)")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	version := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("candlectl %s\n", Version)
		return
	}

	logging.Init(parseLevel(*logLevel), *logJSON)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, rest := args[0], args[1:]

	cfg, err := loadConfig(*cfgPath, *dataDir)
	if err != nil {
		fatalf("config: %v", err)
	}

	// Capacity planning works without touching the data dir.
	if cmd == "estimate" {
		if err := cmdEstimate(cfg, rest); err != nil {
			fatalf("estimate: %v", err)
		}
		return
	}

	svc, err := storage.New(cfg)
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer svc.Close()

	if err := run(svc, cmd, rest); err != nil {
		fatalf("%s: %v", cmd, err)
	}
}

func run(svc *storage.Service, cmd string, args []string) error {
	switch cmd {
	case "symbols":
		return cmdSymbols(svc, args)
	case "timeframes":
		return cmdTimeframes(svc, args)
	case "info":
		return cmdInfo(svc, args)
	case "load":
		return cmdLoad(svc, args)
	case "stats":
		return cmdStats(svc, args)
	case "delete":
		return cmdDelete(svc, args)
	case "prune":
		return cmdPrune(svc, args)
	case "sql":
		return cmdSQL(svc, args)
	case "shell":
		return cmdShell(svc)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig resolves the effective config: file if given, defaults
// otherwise, with the data dir overridable by env and flag.
func loadConfig(path, dataDir string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if env := os.Getenv("CANDLESTORE_DATA"); env != "" {
		cfg.DataDir = env
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "candlectl: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `candlectl %s - partitioned candle storage tool

Usage:
  candlectl [flags] <command> [args]

Commands:
  symbols                      list stored symbols
  timeframes <symbol>          list timeframes stored for a symbol
  info <symbol> <timeframe>    show dataset metadata
  load <symbol> <timeframe>    print candles (see load -h)
  stats <symbol> <timeframe>   per-column statistics (see stats -h)
  delete <symbol> <timeframe>  remove a dataset
  prune <symbol> <timeframe>   delete partitions past retention (see prune -h)
  sql <query>                  run SQL against the query engine
  estimate                     estimate storage and memory needs (see estimate -h)
  shell                        interactive shell with completion

Flags:
`, Version)
	flag.PrintDefaults()
}
