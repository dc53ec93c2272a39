package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeSelection()
	c.normalizeEngine()
	c.normalizeDownload()
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	if c.Catalog.POToken == "" {
		if value, ok := os.LookupEnv("PO_TOKEN"); ok {
			c.Catalog.POToken = value
		}
	}
	if c.Catalog.VisitorData == "" {
		if value, ok := os.LookupEnv("VISITOR_DATA"); ok {
			c.Catalog.VisitorData = value
		}
	}
	c.Catalog.POToken = strings.TrimSpace(c.Catalog.POToken)
	c.Catalog.VisitorData = strings.TrimSpace(c.Catalog.VisitorData)
	c.Catalog.UserAgents = compact(c.Catalog.UserAgents, false)
	if len(c.Catalog.UserAgents) == 0 {
		c.Catalog.UserAgents = []string{defaultUserAgentFallback}
	}
	c.Catalog.Proxies = compact(c.Catalog.Proxies, false)
	if c.Catalog.ResolveTimeout <= 0 {
		c.Catalog.ResolveTimeout = defaultResolveTimeout
	}
	if c.Catalog.FetchTimeout <= 0 {
		c.Catalog.FetchTimeout = defaultFetchTimeout
	}
	if c.Catalog.HTTPTimeout < 0 {
		c.Catalog.HTTPTimeout = 0
	}
	if strings.TrimSpace(c.Catalog.CookieFile) != "" {
		var err error
		if c.Catalog.CookieFile, err = expandPath(strings.TrimSpace(c.Catalog.CookieFile)); err != nil {
			return fmt.Errorf("catalog.cookie_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSelection() {
	c.Selection.Policy = strings.ToLower(strings.TrimSpace(c.Selection.Policy))
	if c.Selection.Policy == "" {
		c.Selection.Policy = defaultPolicy
	}
	c.Selection.PreferredContainers = compact(c.Selection.PreferredContainers, true)
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Engine.Timeout <= 0 {
		c.Engine.Timeout = defaultEngineTimeout
	}
	c.Engine.AudioCodec = strings.TrimSpace(c.Engine.AudioCodec)
	if c.Engine.AudioCodec == "" {
		c.Engine.AudioCodec = defaultAudioCodec
	}
	c.Engine.VideoCodec = strings.TrimSpace(c.Engine.VideoCodec)
	if c.Engine.VideoCodec == "" {
		c.Engine.VideoCodec = defaultVideoCodec
	}
	c.Engine.VideoPreset = strings.TrimSpace(c.Engine.VideoPreset)
	if c.Engine.VideoPreset == "" {
		c.Engine.VideoPreset = defaultVideoPreset
	}
}

func (c *Config) normalizeDownload() {
	c.Download.Format = NormalizeFormat(c.Download.Format)
	if c.Download.Format == "" {
		c.Download.Format = defaultDownloadFormat
	}
	c.Download.Quality = strings.TrimSpace(c.Download.Quality)
	if c.Download.Quality == "" {
		c.Download.Quality = defaultDownloadQuality
	}
	if c.Download.MinFreeMiB < 0 {
		c.Download.MinFreeMiB = 0
	}
	if c.Download.StaleAfterHours <= 0 {
		c.Download.StaleAfterHours = defaultStaleAfterHours
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}

// NormalizeFormat maps historical format spellings onto "video" or "audio".
// Unknown values are returned lowercased so validation can reject them.
func NormalizeFormat(value string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "video", "mp4":
		return FormatVideo
	case "audio", "mp3":
		return FormatAudio
	default:
		return v
	}
}

func compact(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if lower {
			normalized = strings.ToLower(normalized)
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
