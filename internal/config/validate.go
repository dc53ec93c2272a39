package config

import (
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	for _, raw := range c.Catalog.Proxies {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("catalog.proxies: invalid proxy url %q", raw)
		}
	}
	return nil
}

func (c *Config) validateSelection() error {
	switch c.Selection.Policy {
	case PolicySplitFirst, PolicyProgressiveFirst:
		return nil
	default:
		return fmt.Errorf("selection.policy: unsupported value %q (want %q or %q)", c.Selection.Policy, PolicySplitFirst, PolicyProgressiveFirst)
	}
}

func (c *Config) validateEngine() error {
	if c.Engine.MP3Quality < 0 || c.Engine.MP3Quality > 9 {
		return fmt.Errorf("engine.mp3_quality must be between 0 and 9, got %d", c.Engine.MP3Quality)
	}
	return nil
}

func (c *Config) validateDownload() error {
	switch c.Download.Format {
	case FormatVideo, FormatAudio:
		return nil
	default:
		return fmt.Errorf("download.format: unsupported value %q (want %q or %q)", c.Download.Format, FormatVideo, FormatAudio)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
