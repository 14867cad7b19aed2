// Package config loads StreamGrab's settings from an optional YAML file and
// STREAMGRAB_* environment variables.
package config

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the service configuration. Zero values are filled from the
// env-default tags.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr" env:"STREAMGRAB_LISTEN_ADDR" env-default:":8080" validate:"required"`
	YtDlpBinary     string        `yaml:"ytdlp_binary" env:"STREAMGRAB_YTDLP_BINARY" env-default:"yt-dlp" validate:"required"`
	FFmpegBinary    string        `yaml:"ffmpeg_binary" env:"STREAMGRAB_FFMPEG_BINARY" env-default:"ffmpeg" validate:"required"`
	LogLevel        string        `yaml:"log_level" env:"STREAMGRAB_LOG_LEVEL" env-default:"info" validate:"oneof=trace debug info warn error"`
	ExtractTimeout  time.Duration `yaml:"extract_timeout" env:"STREAMGRAB_EXTRACT_TIMEOUT" env-default:"0s" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"STREAMGRAB_SHUTDOWN_TIMEOUT" env-default:"10s" validate:"gt=0"`
	KillWaitDelay   time.Duration `yaml:"kill_wait_delay" env:"STREAMGRAB_KILL_WAIT_DELAY" env-default:"5s" validate:"gt=0"`
	StaticDir       string        `yaml:"static_dir" env:"STREAMGRAB_STATIC_DIR" validate:"omitempty,dir"`

	// FFmpegExtraParams are appended to every ffmpeg plan before the output.
	FFmpegExtraParams []string `yaml:"ffmpeg_extra_params" env:"STREAMGRAB_FFMPEG_EXTRA_PARAMS" env-separator:" "`
	// YtDlpExtraArgs are passed to every yt-dlp invocation.
	YtDlpExtraArgs []string `yaml:"ytdlp_extra_args" env:"STREAMGRAB_YTDLP_EXTRA_ARGS" env-separator:" "`
}

// Load reads path (when non-empty) and the environment, then validates.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.SystemError, "Failed to load configuration", errors.ErrConfigInvalid)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.New(errors.SystemError, errors.GetErrorMessage(errors.ErrConfigInvalid), describe(err), errors.ErrConfigInvalid)
	}
	return nil
}

// Resolve looks both binaries up once and replaces them with their full
// paths. It fails when either is missing so the server never starts without
// its tools.
func (c *Config) Resolve() error {
	ytdlp, err := exec.LookPath(c.YtDlpBinary)
	if err != nil {
		return errors.New(errors.SystemError, errors.GetErrorMessage(errors.ErrMissingDependency), fmt.Sprintf("yt-dlp (%s): %v", c.YtDlpBinary, err), errors.ErrMissingDependency)
	}
	ffmpeg, err := exec.LookPath(c.FFmpegBinary)
	if err != nil {
		return errors.New(errors.SystemError, errors.GetErrorMessage(errors.ErrMissingDependency), fmt.Sprintf("ffmpeg (%s): %v", c.FFmpegBinary, err), errors.ErrMissingDependency)
	}
	c.YtDlpBinary = ytdlp
	c.FFmpegBinary = ffmpeg
	return nil
}

// Usage returns the environment variable help text.
func Usage() string {
	header := "Environment variables:"
	text, err := cleanenv.GetDescription(&Config{}, &header)
	if err != nil {
		return ""
	}
	return text
}

// describe flattens validator errors into "Field: tag" pairs.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		part := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			part += "=" + fe.Param()
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
