package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/crawl"
	"gopkg.in/yaml.v3"
)

// Scorer names accepted by the scorer setting.
const (
	ScorerGoquery     = "goquery"
	ScorerReadability = "readability"
	ScorerTrafilatura = "trafilatura"
)

// Language detector names accepted by the language_detector setting.
const (
	DetectorWhatlang = "whatlang"
	DetectorLingua   = "lingua"
)

// Config is the deployment configuration, read from a YAML file.
type Config struct {
	// RulesDir holds the standard site rule files. CustomRulesDir holds
	// local overrides and is optional.
	RulesDir       string `yaml:"rules_dir"`
	CustomRulesDir string `yaml:"custom_rules_dir"`

	Fingerprints fulltext.FingerprintTable `yaml:"fingerprints"`
	UserAgents   map[string]string         `yaml:"user_agents"`
	Rewrites     []fulltext.Rewrite        `yaml:"rewrites"`
	ContentTypes fulltext.ContentTypeRules `yaml:"content_types"`

	fulltext.URLPolicy `yaml:",inline"`

	DefaultEntries      int    `yaml:"default_entries"`
	MaxEntries          int    `yaml:"max_entries"`
	ExcludeOnFailure    bool   `yaml:"exclude_items_on_failure"`
	ErrorMessage        string `yaml:"error_message"`
	MessageToPrepend    string `yaml:"message_to_prepend"`
	MessageToAppend     string `yaml:"message_to_append"`
	KeepEnclosures      bool   `yaml:"keep_enclosures"`
	RewriteRelativeURLs bool   `yaml:"rewrite_relative_urls"`

	// DetectLanguage is the default language mode, 0 to 3.
	DetectLanguage   int    `yaml:"detect_language"`
	LanguageDetector string `yaml:"language_detector"`

	Scorer string `yaml:"scorer"`

	Fetch  FetchConfig  `yaml:"fetch"`
	Cache  CacheConfig  `yaml:"cache"`
	Server ServerConfig `yaml:"server"`
}

// FetchConfig tunes the fetch agent.
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	Burst       int           `yaml:"burst"`
	Concurrency int           `yaml:"concurrency"`
}

// CacheConfig locates the response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	OutputTTL time.Duration `yaml:"output_ttl"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	gawker := "PHP/5.2"
	return &Config{
		RulesDir:       filepath.Join("site_config", "standard"),
		CustomRulesDir: filepath.Join("site_config", "custom"),
		Fingerprints:   fulltext.DefaultFingerprints(),
		UserAgents: map[string]string{
			"gawker.com":     gawker,
			"gizmodo.com":    gawker,
			"lifehacker.com": gawker,
			"kotaku.com":     gawker,
			"jezebel.com":    gawker,
			"io9.com":        gawker,
			"jalopnik.com":   gawker,
			"deadspin.com":   gawker,
			".wikipedia.org": "Mozilla/5.2",
		},
		Rewrites: []fulltext.Rewrite{
			{Host: "docs.google.com", Find: "/Doc?", Replace: "/View?"},
			{Host: "tnr.com", Find: "tnr.com/article/", Replace: "tnr.com/print/article/"},
			{Host: ".m.wikipedia.org", Find: ".m.wikipedia.org", Replace: ".wikipedia.org"},
		},
		ContentTypes:        fulltext.DefaultContentTypeRules(),
		DefaultEntries:      crawl.DefaultEntries,
		MaxEntries:          crawl.MaxEntries,
		ErrorMessage:        crawl.ErrorMessage,
		KeepEnclosures:      true,
		RewriteRelativeURLs: true,
		DetectLanguage:      int(fulltext.LanguageDeclared),
		LanguageDetector:    DetectorWhatlang,
		Scorer:              ScorerGoquery,
		Fetch: FetchConfig{
			Timeout:     10 * time.Second,
			RateLimit:   2,
			Burst:       4,
			Concurrency: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    defaultCachePath(),
			TTL:     30 * time.Minute,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			OutputTTL: 10 * time.Minute,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path yields the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fulltext.Errorf(fulltext.EINVALID, "config %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	if c.MaxEntries < 1 {
		return fulltext.Errorf(fulltext.EINVALID, "max_entries must be at least 1")
	}
	if c.DefaultEntries < 1 || c.DefaultEntries > c.MaxEntries {
		return fulltext.Errorf(fulltext.EINVALID, "default_entries must be between 1 and max_entries")
	}
	if c.DetectLanguage < int(fulltext.LanguageOff) || c.DetectLanguage > int(fulltext.LanguageDetectAlways) {
		return fulltext.Errorf(fulltext.EINVALID, "detect_language must be between 0 and 3")
	}
	switch c.Scorer {
	case ScorerGoquery, ScorerReadability, ScorerTrafilatura:
	default:
		return fulltext.Errorf(fulltext.EINVALID, "unknown scorer %q", c.Scorer)
	}
	switch c.LanguageDetector {
	case DetectorWhatlang, DetectorLingua:
	default:
		return fulltext.Errorf(fulltext.EINVALID, "unknown language detector %q", c.LanguageDetector)
	}
	for _, r := range c.ContentTypes {
		if r.Action != fulltext.ActionLink && r.Action != fulltext.ActionExclude {
			return fulltext.Errorf(fulltext.EINVALID, "content type %s: unknown action %q", r.MediaType, r.Action)
		}
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fulltext.Errorf(fulltext.EINVALID, "cache.path is required when the cache is enabled")
	}
	return nil
}

// BuilderOptions maps the feed settings onto crawl.Options.
func (c *Config) BuilderOptions() crawl.Options {
	return crawl.Options{
		DefaultEntries:      c.DefaultEntries,
		MaxEntries:          c.MaxEntries,
		ExcludeOnFailure:    c.ExcludeOnFailure,
		ErrorMessage:        c.ErrorMessage,
		MessageToPrepend:    c.MessageToPrepend,
		MessageToAppend:     c.MessageToAppend,
		KeepEnclosures:      c.KeepEnclosures,
		RewriteRelativeURLs: c.RewriteRelativeURLs,
		Policy:              c.URLPolicy,
		ContentTypes:        c.ContentTypes,
		Generator:           crawl.Generator,
	}
}

func defaultCachePath() string {
	if path := os.Getenv("FULLTEXT_CACHE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "fulltext.db"
	}
	dir := filepath.Join(home, ".fulltext")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "cache.db")
}
