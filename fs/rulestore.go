// Package fs implements rule storage on the local filesystem.
package fs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/fwojciec/fulltext"
)

// Ensure RuleStore implements fulltext.RuleStore at compile time.
var _ fulltext.RuleStore = (*RuleStore)(nil)

// RuleFileExt is the extension of rule files. A rule file for the key
// "example.com" is named "example.com.txt"; a wildcard key covering every
// subdomain of example.com is named ".example.com.txt".
const RuleFileExt = ".txt"

// RuleStore resolves hosts to rule sets from two directories. Files in
// the custom directory override same-named files in the standard
// directory field by field.
//
// Resolutions, including misses, are cached per host, and parsed files
// are cached per path, until Invalidate is called. A RuleStore is safe for
// concurrent use.
type RuleStore struct {
	customDir   string
	standardDir string
	logger      *slog.Logger

	mu    sync.RWMutex
	hosts map[string]*fulltext.RuleSet
	files map[string]*fulltext.RuleFile
}

// Option configures a RuleStore.
type Option func(*RuleStore)

// WithCustomDir sets the directory of site-specific overrides.
func WithCustomDir(dir string) Option {
	return func(s *RuleStore) {
		s.customDir = dir
	}
}

// WithLogger sets the logger that receives rule file parse failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RuleStore) {
		s.logger = logger
	}
}

// Open creates a RuleStore reading from standardDir. The directory must
// exist; a custom directory, if configured, may not.
func Open(standardDir string, opts ...Option) (*RuleStore, error) {
	info, err := os.Stat(standardDir)
	if err != nil {
		return nil, fulltext.Errorf(fulltext.EINVALID, "rules directory: %v", err)
	}
	if !info.IsDir() {
		return nil, fulltext.Errorf(fulltext.EINVALID, "rules directory: %s is not a directory", standardDir)
	}

	s := &RuleStore{
		standardDir: standardDir,
		logger:      slog.New(slog.DiscardHandler),
		hosts:       make(map[string]*fulltext.RuleSet),
		files:       make(map[string]*fulltext.RuleFile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve returns the rule set for host. The exact host is tried first,
// then the wildcard and plain keys of each parent domain in turn. A
// leading "www." is ignored.
func (s *RuleStore) Resolve(host string) (*fulltext.RuleSet, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, fulltext.Errorf(fulltext.EINVALID, "empty host")
	}

	s.mu.RLock()
	rs, ok := s.hosts[host]
	s.mu.RUnlock()
	if !ok {
		rs = s.lookup(host)
		s.mu.Lock()
		s.hosts[host] = rs
		s.mu.Unlock()
	}

	if rs == nil {
		return nil, fulltext.Errorf(fulltext.ENOTFOUND, "no rules for %s", host)
	}
	return rs, nil
}

// Invalidate drops every cached resolution and parsed file.
func (s *RuleStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = make(map[string]*fulltext.RuleSet)
	s.files = make(map[string]*fulltext.RuleFile)
}

// Watch invalidates the store whenever a file changes under either rules
// directory. It returns once the watches are in place; watching stops
// when ctx is done.
func (s *RuleStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range []string{s.standardDir, s.customDir} {
		if dir == "" {
			continue
		}
		if err := w.Add(dir); err != nil {
			if dir == s.customDir && errors.Is(err, os.ErrNotExist) {
				continue
			}
			_ = w.Close()
			return err
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != RuleFileExt {
					continue
				}
				s.logger.Debug("rules changed", "file", event.Name, "op", event.Op.String())
				s.Invalidate()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("rules watch", "err", err)
			}
		}
	}()
	return nil
}

// lookup walks the candidate keys for host and returns the first that
// has a rule file in either directory, or nil.
func (s *RuleStore) lookup(host string) *fulltext.RuleSet {
	for _, key := range Keys(host) {
		standard := s.load(s.standardDir, key)
		custom := s.load(s.customDir, key)
		if standard == nil && custom == nil {
			continue
		}

		rs := fulltext.NewRuleSet()
		if standard != nil {
			rs = standard.Layer(rs)
		}
		if custom != nil {
			rs = custom.Layer(rs)
		}
		return rs
	}
	return nil
}

// load returns the parsed rule file for key in dir, or nil if it is
// missing or broken.
func (s *RuleStore) load(dir, key string) *fulltext.RuleFile {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, key+RuleFileExt)

	s.mu.RLock()
	f, ok := s.files[path]
	s.mu.RUnlock()
	if ok {
		return f
	}

	f = s.parse(path)
	s.mu.Lock()
	s.files[path] = f
	s.mu.Unlock()
	return f
}

func (s *RuleStore) parse(path string) *fulltext.RuleFile {
	file, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("open rule file", "file", path, "err", err)
		}
		return nil
	}
	defer file.Close()

	f, err := fulltext.ParseRuleFile(file)
	if err != nil {
		s.logger.Warn("parse rule file", "file", path, "err", fulltext.ErrorMessage(err))
		return nil
	}
	return f
}

// Keys returns the rule keys tried for host, most specific first:
// the host itself, then for each parent domain its wildcard key and its
// plain key. Top-level domains are never keys.
func Keys(host string) []string {
	host = normalizeHost(host)
	if host == "" || strings.ContainsAny(host, `/\`) {
		return nil
	}
	keys := []string{host}
	for rest := host; ; {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			break
		}
		rest = rest[i+1:]
		if !strings.Contains(rest, ".") {
			break
		}
		keys = append(keys, "."+rest, rest)
	}
	return keys
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
