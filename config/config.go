// Package config loads runtime settings from a YAML file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/basis/internal/domain"
)

const (
	// maxWindowDays is the widest time span the exchange accepts per query.
	maxWindowDays = 30

	defaultDataDir       = "./data"
	defaultWindowDays    = 30
	defaultStopEmptyDays = 30
	defaultPace          = 100 * time.Millisecond
)

// Config holds one run's settings.
type Config struct {
	// Platform selects the remote source, "gate" or "binance".
	Platform string
	// Pairs to walk for fills; required for binance, ignored for gate.
	Pairs []domain.Pair
	// DataDir holds the ledger and snapshot files.
	DataDir string
	// WindowDays is the backfill window size and the incremental max span.
	WindowDays int
	// StopEmptyDays of consecutive silence end a backfill.
	StopEmptyDays int
	// Pace between successive remote calls; a cooperative throttle.
	Pace time.Duration
}

type configTmp struct {
	Platform      string        `yaml:"platform"`
	Pairs         []string      `yaml:"pairs,omitempty"`
	DataDir       string        `yaml:"data_dir,omitempty"`
	WindowDays    int           `yaml:"window_days,omitempty"`
	StopEmptyDays int           `yaml:"stop_empty_days,omitempty"`
	Pace          time.Duration `yaml:"pace,omitempty"`
}

// Get parses flags and, when --config is given, the YAML file it points to.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "gate", "remote source platform: gate or binance")
	pairsFlag := flag.String("pairs", "", "comma-separated pairs for binance fills, example: BTC_USDT,ETH_USDT")
	dataDir := flag.String("datadir", defaultDataDir, "directory for ledger and snapshot files")
	windowDays := flag.Int("windowdays", defaultWindowDays, "history query window in days (max 30)")
	stopEmptyDays := flag.Int("stopemptydays", defaultStopEmptyDays, "consecutive empty days that stop a backfill")
	pace := flag.Duration("pace", defaultPace, "delay between successive remote calls")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		Platform:      *platform,
		DataDir:       *dataDir,
		WindowDays:    *windowDays,
		StopEmptyDays: *stopEmptyDays,
		Pace:          *pace,
	}

	if *pairsFlag != "" {
		pairs, err := parsePairs(strings.Split(*pairsFlag, ","))
		if err != nil {
			return Config{}, fmt.Errorf("invalid --pairs provided: %w", err)
		}
		cfg.Pairs = pairs
	}

	return cfg, validate(cfg)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Platform:      tmp.Platform,
		DataDir:       tmp.DataDir,
		WindowDays:    tmp.WindowDays,
		StopEmptyDays: tmp.StopEmptyDays,
		Pace:          tmp.Pace,
	}
	if cfg.Platform == "" {
		cfg.Platform = "gate"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.StopEmptyDays == 0 {
		cfg.StopEmptyDays = defaultStopEmptyDays
	}
	if cfg.Pace == 0 {
		cfg.Pace = defaultPace
	}

	if len(tmp.Pairs) > 0 {
		pairs, err := parsePairs(tmp.Pairs)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'pairs' param in yaml config: %w", err)
		}
		cfg.Pairs = pairs
	}

	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	switch cfg.Platform {
	case "gate":
	case "binance":
		if len(cfg.Pairs) == 0 {
			return fmt.Errorf("binance platform requires at least one pair")
		}
	default:
		return fmt.Errorf("unsupported platform %q", cfg.Platform)
	}

	if cfg.WindowDays < 1 || cfg.WindowDays > maxWindowDays {
		return fmt.Errorf("window_days must be between 1 and %d, got %d", maxWindowDays, cfg.WindowDays)
	}
	if cfg.StopEmptyDays < 1 {
		return fmt.Errorf("stop_empty_days must be positive, got %d", cfg.StopEmptyDays)
	}

	return nil
}

func parsePairs(raw []string) ([]domain.Pair, error) {
	pairs := make([]domain.Pair, 0, len(raw))
	for _, s := range raw {
		pair, err := domain.PairFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
