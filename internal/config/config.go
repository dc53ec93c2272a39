package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and state file locations.
type Paths struct {
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Catalog contains settings forwarded unmodified to the stream catalog client.
type Catalog struct {
	ResolveTimeout int      `toml:"resolve_timeout"`
	FetchTimeout   int      `toml:"fetch_timeout"`
	HTTPTimeout    int      `toml:"http_timeout"`
	UserAgents     []string `toml:"user_agents"`
	Proxies        []string `toml:"proxies"`
	CookieFile     string   `toml:"cookie_file"`
	POToken        string   `toml:"po_token"`
	VisitorData    string   `toml:"visitor_data"`
}

// Selection contains the stream selection policy.
type Selection struct {
	// Policy is "split-first" or "progressive-first"; it only affects
	// requests for the highest quality.
	Policy              string   `toml:"policy"`
	PreferredContainers []string `toml:"preferred_containers"`
	// PreferProgressiveOnExact picks a progressive stream whose label matches
	// a named quality before trying a split pair at the same label.
	PreferProgressiveOnExact bool `toml:"prefer_progressive_on_exact"`
}

// Engine contains ffmpeg invocation settings.
type Engine struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	Timeout      int    `toml:"timeout"`
	AudioCodec   string `toml:"audio_codec"`
	VideoCodec   string `toml:"video_codec"`
	VideoPreset  string `toml:"video_preset"`
	MP3Quality   int    `toml:"mp3_quality"`
	FastStart    bool   `toml:"faststart"`
}

// Download contains defaults for the download action.
type Download struct {
	Format          string `toml:"format"`
	Quality         string `toml:"quality"`
	MinFreeMiB      int    `toml:"min_free_mib"`
	StaleAfterHours int    `toml:"stale_after_hours"`
}

// History controls the download history journal.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for fetch-media.
//
// Configuration sections by subsystem:
//   - Paths: log directory and history database
//   - Catalog: timeouts and pass-through anti-detection settings
//   - Selection: stream selection policy
//   - Engine: ffmpeg binary, timeout, and codec choices
//   - Download: default format/quality and preflight thresholds
//   - History: download journal toggle
//   - Logging: log format, level, and optional file
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Selection Selection `toml:"selection"`
	Engine    Engine    `toml:"engine"`
	Download  Download  `toml:"download"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories holding logs and the history database.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.History.Enabled && strings.TrimSpace(c.Paths.HistoryDB) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ResolveTimeout bounds the catalog metadata lookup.
func (c *Config) ResolveTimeout() time.Duration {
	return seconds(c.Catalog.ResolveTimeout)
}

// FetchTimeout bounds each descriptor retrieval.
func (c *Config) FetchTimeout() time.Duration {
	return seconds(c.Catalog.FetchTimeout)
}

// EngineTimeout bounds each ffmpeg invocation.
func (c *Config) EngineTimeout() time.Duration {
	return seconds(c.Engine.Timeout)
}

// StaleAfter is the age past which leftover run artifacts are swept.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Download.StaleAfterHours) * time.Hour
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
