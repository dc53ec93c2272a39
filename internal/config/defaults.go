package config

const (
	defaultConfigPath        = "~/.config/fetch-media/config.toml"
	projectConfigName        = "fetch-media.toml"
	defaultLogDir            = "~/.local/share/fetch-media/logs"
	defaultHistoryDB         = "~/.local/share/fetch-media/history.db"
	defaultResolveTimeout    = 60
	defaultFetchTimeout      = 1800
	defaultHTTPTimeout       = 30
	defaultPolicy            = PolicySplitFirst
	defaultFFmpegBinary      = "ffmpeg"
	defaultEngineTimeout     = 1800
	defaultAudioCodec        = "aac"
	defaultVideoCodec        = "libx264"
	defaultVideoPreset       = "fast"
	defaultMP3Quality        = 0
	defaultDownloadFormat    = FormatVideo
	defaultDownloadQuality   = "highest"
	defaultMinFreeMiB        = 256
	defaultStaleAfterHours   = 24
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
	defaultHistoryEnabled    = true
	defaultEngineFastStart   = true
	defaultUserAgentFallback = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Selection policies.
const (
	PolicySplitFirst       = "split-first"
	PolicyProgressiveFirst = "progressive-first"
)

// Download formats.
const (
	FormatVideo = "video"
	FormatAudio = "audio"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Catalog: Catalog{
			ResolveTimeout: defaultResolveTimeout,
			FetchTimeout:   defaultFetchTimeout,
			HTTPTimeout:    defaultHTTPTimeout,
			UserAgents:     []string{defaultUserAgentFallback},
		},
		Selection: Selection{
			Policy:              defaultPolicy,
			PreferredContainers: []string{"mp4", "webm"},
		},
		Engine: Engine{
			FFmpegBinary: defaultFFmpegBinary,
			Timeout:      defaultEngineTimeout,
			AudioCodec:   defaultAudioCodec,
			VideoCodec:   defaultVideoCodec,
			VideoPreset:  defaultVideoPreset,
			MP3Quality:   defaultMP3Quality,
			FastStart:    defaultEngineFastStart,
		},
		Download: Download{
			Format:          defaultDownloadFormat,
			Quality:         defaultDownloadQuality,
			MinFreeMiB:      defaultMinFreeMiB,
			StaleAfterHours: defaultStaleAfterHours,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
