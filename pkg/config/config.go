package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gonum.org/v1/plot/vg"

	"github.com/gilchrisn/alignment-charts/pkg/catalog"
	"github.com/gilchrisn/alignment-charts/pkg/pipeline"
	"github.com/gilchrisn/alignment-charts/pkg/render"
)

// EnvPrefix prefixes every environment override, e.g. CHARTS_OUTPUT_DIR.
const EnvPrefix = "CHARTS"

// EnvConfigFile names an optional configuration file.
const EnvConfigFile = EnvPrefix + "_CONFIG"

// Config manages renderer and server configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Output parameters
	v.SetDefault("output.dir", ".")

	// Render parameters
	v.SetDefault("render.skip_empty", true)
	v.SetDefault("render.continue_on_error", false)
	v.SetDefault("render.workers", 1)
	v.SetDefault("render.dpi", 100)
	v.SetDefault("render.width_in", 10.0)
	v.SetDefault("render.height_in", 6.0)
	v.SetDefault("render.grid_columns", 3)
	v.SetDefault("render.cell_format", "%.2f")

	// Catalog parameters
	v.SetDefault("catalog.preset", catalog.PresetStandard)
	v.SetDefault("catalog.file", "")

	// Logging parameters
	v.SetDefault("logging.level", "info")

	// Server parameters
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.work_dir", "./renders")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Job parameters
	v.SetDefault("jobs.max_concurrent", 2)
	v.SetDefault("jobs.result_ttl", time.Hour)
	v.SetDefault("jobs.cleanup_interval", 5*time.Minute)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// Load creates a configuration and reads the file named by CHARTS_CONFIG, if any.
func Load() (*Config, error) {
	c := NewConfig()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := c.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for output and render parameters
func (c *Config) OutputDir() string { return c.v.GetString("output.dir") }
func (c *Config) SkipEmpty() bool { return c.v.GetBool("render.skip_empty") }
func (c *Config) ContinueOnError() bool { return c.v.GetBool("render.continue_on_error") }
func (c *Config) Workers() int { return c.v.GetInt("render.workers") }
func (c *Config) DPI() int { return c.v.GetInt("render.dpi") }
func (c *Config) Width() vg.Length { return vg.Length(c.v.GetFloat64("render.width_in")) * vg.Inch }
func (c *Config) Height() vg.Length { return vg.Length(c.v.GetFloat64("render.height_in")) * vg.Inch }
func (c *Config) GridColumns() int { return c.v.GetInt("render.grid_columns") }
func (c *Config) CellFormat() string { return c.v.GetString("render.cell_format") }
func (c *Config) CatalogPreset() string { return c.v.GetString("catalog.preset") }
func (c *Config) CatalogFile() string { return c.v.GetString("catalog.file") }
func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Getters for server parameters
func (c *Config) ServerAddress() string { return c.v.GetString("server.address") }
func (c *Config) ReadTimeout() time.Duration { return c.v.GetDuration("server.read_timeout") }
func (c *Config) WriteTimeout() time.Duration { return c.v.GetDuration("server.write_timeout") }
func (c *Config) MaxUploadBytes() int64 { return c.v.GetInt64("server.max_upload_mb") << 20 }
func (c *Config) WorkDir() string { return c.v.GetString("server.work_dir") }
func (c *Config) AllowedOrigins() []string { return c.v.GetStringSlice("server.allowed_origins") }
func (c *Config) MaxConcurrentRenders() int { return c.v.GetInt("jobs.max_concurrent") }
func (c *Config) ResultTTL() time.Duration { return c.v.GetDuration("jobs.result_ttl") }
func (c *Config) CleanupInterval() time.Duration { return c.v.GetDuration("jobs.cleanup_interval") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// RenderOptions converts the render section for the renderer
func (c *Config) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.Width = c.Width()
	opts.Height = c.Height()
	opts.DPI = c.DPI()
	opts.GridColumns = c.GridColumns()
	opts.CellFormat = c.CellFormat()
	return opts
}

// PipelineOptions converts the output and render sections for the pipeline
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		OutputDir:       c.OutputDir(),
		SkipEmpty:       c.SkipEmpty(),
		ContinueOnError: c.ContinueOnError(),
		Workers:         c.Workers(),
	}
}

// Catalog resolves the configured catalog file or preset
func (c *Config) Catalog() (*catalog.Catalog, error) {
	return catalog.Resolve(c.CatalogPreset(), c.CatalogFile())
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger(service string) zerolog.Logger {
	return c.NewLogger(os.Stderr, service)
}

// NewLogger writes console-formatted logs to out
func (c *Config) NewLogger(out io.Writer, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", service).Logger()
}
