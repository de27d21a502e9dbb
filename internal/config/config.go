package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Build    BuildConfig    `yaml:"build"`
	Phonetic PhoneticConfig `yaml:"phonetic"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.DSN != "" }

// Source names accepted by BuildConfig.Source.
const (
	SourceKaikki = "kaikki"
	SourceCMU    = "cmu"
)

// Output formats accepted by BuildConfig.Format.
const (
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// BuildConfig holds dictionary build settings.
type BuildConfig struct {
	LanguagesRaw string `yaml:"languages"   env:"BUILD_LANGUAGES"   env-default:"en"`
	Source       string `yaml:"source"      env:"BUILD_SOURCE"      env-default:"kaikki"`
	InputPath    string `yaml:"input"       env:"BUILD_INPUT"`
	OutputDir    string `yaml:"output_dir"  env:"BUILD_OUTPUT_DIR"  env-default:"./out"`
	Format       string `yaml:"format"      env:"BUILD_FORMAT"      env-default:"tsv"`
	CuratedPath  string `yaml:"curated"     env:"BUILD_CURATED"`
	Concurrency  int    `yaml:"concurrency" env:"BUILD_CONCURRENCY" env-default:"4"`
	Persist      bool   `yaml:"persist"     env:"BUILD_PERSIST"     env-default:"false"`
	DryRun       bool   `yaml:"dry_run"     env:"BUILD_DRY_RUN"     env-default:"false"`

	// Languages is parsed from LanguagesRaw during validation.
	Languages []string `yaml:"-" env:"-"`
}

// PhoneticConfig holds reference phoneme inventory settings.
// An empty ReferenceURL selects the inventories bundled with the binary.
type PhoneticConfig struct {
	ReferenceURL string        `yaml:"reference_url" env:"PHONETIC_REFERENCE_URL"`
	CacheSize    int           `yaml:"cache_size"    env:"PHONETIC_CACHE_SIZE"    env-default:"1024"`
	Timeout      time.Duration `yaml:"timeout"       env:"PHONETIC_TIMEOUT"       env-default:"30s"`
}

// ParseLanguages splits a comma-separated list of language codes, dropping
// blanks and duplicates. An empty string returns a nil slice.
func ParseLanguages(raw string) []string {
	var langs []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		code := strings.TrimSpace(part)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		langs = append(langs, code)
	}
	return langs
}
