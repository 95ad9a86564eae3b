package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	YouTube    YouTubeConfig    `yaml:"youtube" mapstructure:"youtube"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Transcript TranscriptConfig `yaml:"transcript" mapstructure:"transcript"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Targets    TargetsConfig    `yaml:"targets" mapstructure:"targets"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// YouTubeConfig holds YouTube Data API settings.
type YouTubeConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DiscoveryConfig configures the video discovery phase.
type DiscoveryConfig struct {
	MaxSearchResults    int    `yaml:"max_search_results" mapstructure:"max_search_results"`
	MaxCommentsPerVideo int    `yaml:"max_comments_per_video" mapstructure:"max_comments_per_video"`
	PublishedAfter      string `yaml:"published_after" mapstructure:"published_after"`
	PublishedBefore     string `yaml:"published_before" mapstructure:"published_before"`
	Region              string `yaml:"region" mapstructure:"region"`
}

// TranscriptConfig configures transcript acquisition.
type TranscriptConfig struct {
	PreferCaptions bool   `yaml:"prefer_captions" mapstructure:"prefer_captions"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	YtDlpPath      string `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
	WhisperPath    string `yaml:"whisper_path" mapstructure:"whisper_path"`
	WhisperModel   string `yaml:"whisper_model" mapstructure:"whisper_model"`
	AudioDir       string `yaml:"audio_dir" mapstructure:"audio_dir"`
	Language       string `yaml:"language" mapstructure:"language"`
}

// ReportConfig configures report generation.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// TargetsConfig points at the predefined target registry file.
type TargetsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REVIEWPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "reviewpulse.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("youtube.requests_per_sec", 10)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("discovery.max_search_results", 50)
	v.SetDefault("discovery.max_comments_per_video", 100)
	v.SetDefault("discovery.published_after", "2021-01-01T00:00:00Z")
	v.SetDefault("discovery.region", "US")
	v.SetDefault("transcript.prefer_captions", true)
	v.SetDefault("transcript.max_retries", 2)
	v.SetDefault("transcript.ytdlp_path", "yt-dlp")
	v.SetDefault("transcript.whisper_path", "whisper")
	v.SetDefault("transcript.whisper_model", "base")
	v.SetDefault("transcript.language", "en")
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("targets.path", "targets.yaml")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
