// Package config resolves one pipeline run's settings from CLI flags, an
// optional on-disk defaults file, and environment variables, with explicit
// flag > env var > config file > built-in default precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/baassets/pipeline/internal/catalog"
)

// Config carries every run-scoped setting threaded into region.Options,
// fetch.Fetcher, and pipeline.Options.
type Config struct {
	Region             string
	Version            string // "" means auto-detect
	BaseThreads        int
	MaxWorkers         int
	MaxRetries         int
	Proxy              string
	DownloadingExtract bool
	ResourceTypes      []catalog.ResourceType // empty means all
	RawDir             string
	ExtractDir         string
	TempDir            string
	Search             []string
	AdvancedSearch     []string
}

// Defaults a run falls back to when neither a flag nor an env var nor the
// config file sets a value.
const (
	DefaultBaseThreads = 4
	DefaultMaxWorkers  = 64
	DefaultMaxRetries  = 5
)

// Flags is the raw, as-parsed flag set a cobra command hands to Resolve.
// Fields left at their zero value are treated as "not explicitly set";
// cobra command code should only populate a field here when the user
// actually passed the flag (via cmd.Flags().Changed).
type Flags struct {
	Region             string
	Version            string
	BaseThreads        int
	MaxWorkers         int
	MaxRetries         int
	Proxy              string
	DownloadingExtract *bool
	ResourceTypes      []string
	RawDir             string
	ExtractDir         string
	TempDir            string
	Search             []string
	AdvancedSearch     []string
}

// Resolve builds a Config for region from flags, environment variables
// (BAASSETS_*), an optional on-disk defaults file, and built-in defaults,
// in that precedence order.
func Resolve(flags Flags) (Config, error) {
	if flags.Region == "" {
		return Config{}, fmt.Errorf("config: region is required")
	}
	region := strings.ToUpper(flags.Region)

	file := loadDefaultsFile()

	cfg := Config{
		Region:             strings.ToLower(flags.Region),
		Version:            firstNonEmpty(flags.Version, os.Getenv("BAASSETS_VERSION")),
		BaseThreads:        firstPositiveInt(flags.BaseThreads, envInt("BAASSETS_THREADS"), file.baseThreads, DefaultBaseThreads),
		MaxWorkers:         firstPositiveInt(flags.MaxWorkers, envInt("BAASSETS_MAX_WORKERS"), file.maxWorkers, DefaultMaxWorkers),
		MaxRetries:         firstPositiveInt(flags.MaxRetries, envInt("BAASSETS_MAX_RETRIES"), file.maxRetries, DefaultMaxRetries),
		Proxy:              firstNonEmpty(flags.Proxy, os.Getenv("BAASSETS_PROXY"), file.proxy),
		DownloadingExtract: resolveBool(flags.DownloadingExtract, file.downloadingExtract),
		RawDir:             firstNonEmpty(flags.RawDir, os.Getenv("BAASSETS_RAW_DIR"), region+"RawData"),
		ExtractDir:         firstNonEmpty(flags.ExtractDir, os.Getenv("BAASSETS_EXTRACT_DIR"), region+"Extracted"),
		TempDir:            firstNonEmpty(flags.TempDir, os.Getenv("BAASSETS_TEMP_DIR"), region+"Temp"),
		Search:             flags.Search,
		AdvancedSearch:     flags.AdvancedSearch,
	}

	for _, t := range flags.ResourceTypes {
		rt := catalog.ResourceType(strings.ToLower(strings.TrimSpace(t)))
		switch rt {
		case catalog.ResourceBundle, catalog.ResourceMedia, catalog.ResourceTable:
			cfg.ResourceTypes = append(cfg.ResourceTypes, rt)
		default:
			return Config{}, fmt.Errorf("config: unknown resource type %q", t)
		}
	}

	return cfg, nil
}

func resolveBool(flag *bool, fileVal *bool) bool {
	if flag != nil {
		return *flag
	}
	if env := os.Getenv("BAASSETS_DOWNLOADING_EXTRACT"); env != "" {
		v, err := strconv.ParseBool(env)
		if err == nil {
			return v
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositiveInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

// fileDefaults holds the subset of settings an on-disk defaults file may
// override; a file is entirely optional, and a missing or unreadable one
// silently yields zero values so Resolve falls through to env/builtins.
type fileDefaults struct {
	baseThreads        int
	maxWorkers         int
	maxRetries         int
	proxy              string
	downloadingExtract *bool
}

// DefaultsFilePath returns the per-OS config path:
// ~/.config/baassets/defaults.ini on Unix,
// %USERPROFILE%\.config\baassets\defaults.ini on Windows.
func DefaultsFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "baassets", "defaults.ini"), nil
}

func loadDefaultsFile() fileDefaults {
	var fd fileDefaults

	path, err := DefaultsFilePath()
	if err != nil {
		return fd
	}
	if runtime.GOOS == "windows" {
		path = filepath.Join(os.Getenv("USERPROFILE"), ".config", "baassets", "defaults.ini")
	}

	f, err := ini.Load(path)
	if err != nil {
		return fd
	}

	sec := f.Section("baassets")
	if v, err := sec.Key("base_threads").Int(); err == nil {
		fd.baseThreads = v
	}
	if v, err := sec.Key("max_workers").Int(); err == nil {
		fd.maxWorkers = v
	}
	if v, err := sec.Key("max_retries").Int(); err == nil {
		fd.maxRetries = v
	}
	fd.proxy = sec.Key("proxy").String()
	if sec.HasKey("downloading_extract") {
		v, err := sec.Key("downloading_extract").Bool()
		if err == nil {
			fd.downloadingExtract = &v
		}
	}
	return fd
}
