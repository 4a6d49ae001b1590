package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/fwojciec/fulltext"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Builder   fulltext.FeedBuilder
	Writers   map[string]fulltext.FeedWriter
	Fetcher   fulltext.Fetcher
	Extractor fulltext.Extractor
	Formatter fulltext.Formatter
	Converter fulltext.Converter
	Rules     fulltext.RuleStore
	Cache     fulltext.ResponseCache

	// Language is the configured default language mode.
	Language fulltext.LanguageMode

	// Handler serves the feed endpoint. Watch, if set, reloads site rules
	// on change until the context is done.
	Handler http.Handler
	Watch   func(ctx context.Context) error
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"c" type:"path" env:"FULLTEXT_CONFIG" help:"YAML configuration file"`
	Verbose bool   `short:"v" help:"Log debug output to stderr"`

	Feed       FeedCmd       `cmd:"" help:"Build a full-text feed from a partial feed or web page"`
	Extract    ExtractCmd    `cmd:"" help:"Extract the article from a single page"`
	Rules      RulesCmd      `cmd:"" help:"Show the site rules that apply to a host"`
	Serve      ServeCmd      `cmd:"" help:"Serve full-text feeds over HTTP"`
	CleanCache CleanCacheCmd `cmd:"" name:"clean-cache" help:"Delete expired response cache entries"`
}

// FeedCmd is the "feed" subcommand.
type FeedCmd struct {
	URL           string `arg:"" help:"Feed or page URL"`
	Max           int    `short:"n" help:"Number of items to process (capped by max_entries)"`
	Links         string `enum:"preserve,footnotes,remove" default:"preserve" help:"Link handling: preserve, footnotes or remove"`
	ExcludeFailed bool   `short:"x" name:"exclude-failed" help:"Drop items whose content could not be extracted"`
	Format        string `short:"f" enum:"rss,atom,json" default:"rss" help:"Output format: rss, atom or json"`
	HTML          bool   `help:"Treat the URL as a web page, not a feed"`
	Lang          int    `short:"l" default:"-1" help:"Language mode 0-3 (default from config)"`
	What          string `short:"w" help:"CSS selector narrowing article bodies; prefix with 'auto ' to keep automatic extraction"`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	URL      string `arg:"" help:"Page URL"`
	Markdown bool   `short:"m" help:"Print Markdown instead of HTML"`
	Links    string `enum:"preserve,footnotes,remove" default:"preserve" help:"Link handling: preserve, footnotes or remove"`
}

// RulesCmd is the "rules" subcommand.
type RulesCmd struct {
	Host string `arg:"" help:"Host name, e.g. www.example.com"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr  string `short:"a" help:"Listen address (default from config)"`
	Watch bool   `default:"true" negatable:"" help:"Reload site rules when rule files change"`
}

// CleanCacheCmd is the "clean-cache" subcommand.
type CleanCacheCmd struct{}
