package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := c.Build.validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	if c.Build.Persist && !c.Database.Enabled() {
		return fmt.Errorf("build.persist requires database.dsn")
	}

	if c.Database.Enabled() && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database: min_conns (%d) must not exceed max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Phonetic.CacheSize <= 0 {
		return fmt.Errorf("phonetic: cache_size must be > 0 (got %d)", c.Phonetic.CacheSize)
	}
	if c.Phonetic.Timeout <= 0 {
		return fmt.Errorf("phonetic: timeout must be > 0 (got %s)", c.Phonetic.Timeout)
	}

	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	return nil
}

func (b *BuildConfig) validate() error {
	b.Languages = ParseLanguages(b.LanguagesRaw)
	if len(b.Languages) == 0 {
		return fmt.Errorf("languages must not be empty")
	}

	switch b.Source {
	case SourceKaikki:
	case SourceCMU:
		if !slices.Equal(b.Languages, []string{"en"}) {
			return fmt.Errorf("source %s only provides en (got %s)", SourceCMU, strings.Join(b.Languages, ","))
		}
	default:
		return fmt.Errorf("source must be %s or %s (got %q)", SourceKaikki, SourceCMU, b.Source)
	}

	if b.Format != FormatTSV && b.Format != FormatJSON {
		return fmt.Errorf("format must be %s or %s (got %q)", FormatTSV, FormatJSON, b.Format)
	}

	if b.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1 (got %d)", b.Concurrency)
	}

	if !b.DryRun && b.OutputDir == "" {
		return fmt.Errorf("output_dir is required unless dry_run is set")
	}

	return nil
}
