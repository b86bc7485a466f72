package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration. Every field can be set through
// the environment with the SCRIDEO_ prefix (e.g. SCRIDEO_DATA_DIR); unset
// fields take the defaults below.
type Config struct {
	Port      int    `mapstructure:"port"`
	DataDir   string `mapstructure:"data_dir"`
	LogLevel  string `mapstructure:"log_level"`
	JWTSecret string `mapstructure:"jwt_secret"`

	FFmpegPath   string `mapstructure:"ffmpeg_path"`
	FFprobePath  string `mapstructure:"ffprobe_path"`
	WhisperBin   string `mapstructure:"whisper_bin"`
	WhisperModel string `mapstructure:"whisper_model"`
	YtDlpPath    string `mapstructure:"ytdlp_path"`

	EncodeTimeout     time.Duration `mapstructure:"encode_timeout"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	StorageLimitBytes int64         `mapstructure:"storage_limit_bytes"`
}

// Load builds the configuration from environment variables over defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRIDEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 7860)
	v.SetDefault("data_dir", "data")
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", "scrideo-dev-secret")
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("whisper_bin", "whisper")
	v.SetDefault("whisper_model", "models/ggml-base.bin")
	v.SetDefault("ytdlp_path", "yt-dlp")
	v.SetDefault("encode_timeout", "300s")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("storage_limit_bytes", 500*1024*1024)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("config: data dir is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwt secret is required")
	}
	if c.EncodeTimeout <= 0 {
		return errors.New("config: encode timeout must be positive")
	}
	if c.StorageLimitBytes <= 0 {
		return errors.New("config: storage limit must be positive")
	}
	return nil
}

func (c Config) UploadsDir() string   { return filepath.Join(c.DataDir, "uploads") }
func (c Config) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }
func (c Config) WorkDir() string      { return filepath.Join(c.DataDir, "work") }
func (c Config) DatabasePath() string { return filepath.Join(c.DataDir, "scrideo.db") }
func (c Config) LockPath() string     { return filepath.Join(c.DataDir, "scrideo.lock") }

// EnsureDirectories creates the on-disk layout the service expects.
func (c Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.UploadsDir(), c.ProcessedDir(), c.WorkDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
