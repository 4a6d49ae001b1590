package fulltext

import (
	"bufio"
	"io"
	"strings"
)

// Parser names accepted by the parser directive of a rule file.
const (
	ParserLibxml  = "libxml"
	ParserHTML5   = "html5lib"
	DefaultParser = ParserLibxml
)

// Replacement is a literal substitution applied to raw markup before parsing.
type Replacement struct {
	Find    string
	Replace string
}

// RuleSet holds the extraction instructions for one host pattern.
// A RuleSet returned by a RuleStore is shared and must not be mutated;
// use Clone to obtain a private copy.
type RuleSet struct {
	// Ordered XPath expressions, evaluated first match wins.
	Title  []string
	Body   []string
	Author []string
	Date   []string

	// Noise removal.
	Strip          []string
	StripIDOrClass []string
	StripImageSrc  []string

	// SkipEntry rejects the whole document when any expression matches.
	SkipEntry []string

	// SinglePageLink locates a link to the unpaginated article, evaluated
	// against the page. SinglePageLinkInFeed is evaluated against the
	// source feed item's description instead.
	SinglePageLink       []string
	SinglePageLinkInFeed []string

	// Replace lists literal substitutions applied before parsing.
	Replace []Replacement

	Prune               bool
	Tidy                bool
	AutodetectOnFailure bool
	Parser              string

	// TestURLs are sample pages the rule file author verified against.
	TestURLs []string
}

// NewRuleSet returns the default rule set, which carries no expressions
// and therefore produces pure heuristic extraction.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		Prune:               true,
		Tidy:                true,
		AutodetectOnFailure: true,
		Parser:              DefaultParser,
	}
}

// Clone returns a deep copy of the rule set.
func (r *RuleSet) Clone() *RuleSet {
	other := *r
	for _, field := range listFields {
		dst := field(&other)
		*dst = append([]string(nil), *field(r)...)
	}
	other.Replace = append([]Replacement(nil), r.Replace...)
	return &other
}

// listFields maps rule file keys to the list they populate.
var listFields = map[string]func(*RuleSet) *[]string{
	"title":                    func(r *RuleSet) *[]string { return &r.Title },
	"body":                     func(r *RuleSet) *[]string { return &r.Body },
	"author":                   func(r *RuleSet) *[]string { return &r.Author },
	"date":                     func(r *RuleSet) *[]string { return &r.Date },
	"strip":                    func(r *RuleSet) *[]string { return &r.Strip },
	"strip_id_or_class":        func(r *RuleSet) *[]string { return &r.StripIDOrClass },
	"strip_image_src":          func(r *RuleSet) *[]string { return &r.StripImageSrc },
	"skip_entry":               func(r *RuleSet) *[]string { return &r.SkipEntry },
	"single_page_link":         func(r *RuleSet) *[]string { return &r.SinglePageLink },
	"single_page_link_in_feed": func(r *RuleSet) *[]string { return &r.SinglePageLinkInFeed },
	"test_url":                 func(r *RuleSet) *[]string { return &r.TestURLs },
}

// boolFields maps rule file keys to the flag they set.
var boolFields = map[string]func(*RuleSet) *bool{
	"prune":                 func(r *RuleSet) *bool { return &r.Prune },
	"tidy":                  func(r *RuleSet) *bool { return &r.Tidy },
	"autodetect_on_failure": func(r *RuleSet) *bool { return &r.AutodetectOnFailure },
}

// RuleFile is a parsed rule file. Only the fields the file mentions are
// applied when it is layered over a base rule set.
type RuleFile struct {
	// Rules holds the values read from the file.
	Rules *RuleSet

	// Append marks an additive file: its lists extend the base lists
	// instead of replacing them.
	Append bool

	set map[string]bool
}

// Has reports whether the file sets the given key.
func (f *RuleFile) Has(key string) bool {
	return f.set[key]
}

// ParseRuleFile reads a rule file made of "key: value" lines. Lines starting
// with # are comments. Unknown keys are ignored so newer rule files keep
// loading. A line that is not a directive returns an ERULEPARSE error.
func ParseRuleFile(r io.Reader) (*RuleFile, error) {
	f := &RuleFile{
		Rules: &RuleSet{},
		set:   make(map[string]bool),
	}

	var finds, replaces []string
	first := true
	lineNo := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := splitDirective(line)
		if err != nil {
			return nil, Errorf(ERULEPARSE, "line %d: %s", lineNo, ErrorMessage(err))
		}

		if key == "append" {
			if !first {
				return nil, Errorf(ERULEPARSE, "line %d: append must be the first directive", lineNo)
			}
			f.Append = value == "" || parseBool(value, true)
			first = false
			continue
		}
		first = false

		if field, ok := listFields[key]; ok {
			dst := field(f.Rules)
			*dst = append(*dst, value)
			f.set[key] = true
			continue
		}
		if field, ok := boolFields[key]; ok {
			*field(f.Rules) = parseBool(value, *field(f.Rules))
			f.set[key] = true
			continue
		}

		switch {
		case key == "parser":
			f.Rules.Parser = value
			f.set[key] = true
		case key == "find_string":
			finds = append(finds, value)
		case key == "replace_string":
			replaces = append(replaces, value)
		case strings.HasPrefix(key, "replace_string("):
			find := strings.TrimSuffix(strings.TrimPrefix(key, "replace_string("), ")")
			f.Rules.Replace = append(f.Rules.Replace, Replacement{Find: find, Replace: value})
			f.set["replace_string"] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, Errorf(ERULEPARSE, "read rule file: %v", err)
	}

	if len(finds) != len(replaces) {
		return nil, Errorf(ERULEPARSE, "%d find_string directives but %d replace_string directives", len(finds), len(replaces))
	}
	for i := range finds {
		f.Rules.Replace = append(f.Rules.Replace, Replacement{Find: finds[i], Replace: replaces[i]})
		f.set["replace_string"] = true
	}

	return f, nil
}

// splitDirective splits a "key: value" line. The shorthand
// "replace_string(find): value" may contain colons inside the parentheses.
func splitDirective(line string) (key, value string, err error) {
	if strings.HasPrefix(line, "replace_string(") {
		i := strings.Index(line, "):")
		if i < 0 {
			return "", "", Errorf(ERULEPARSE, "unterminated replace_string directive")
		}
		return line[:i+1], strings.TrimSpace(line[i+2:]), nil
	}
	i := strings.Index(line, ":")
	if i <= 0 {
		return "", "", Errorf(ERULEPARSE, "expected key: value, got %q", line)
	}
	key = strings.ToLower(strings.TrimSpace(line[:i]))
	if strings.ContainsAny(key, " \t") {
		return "", "", Errorf(ERULEPARSE, "invalid key %q", key)
	}
	return key, strings.TrimSpace(line[i+1:]), nil
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(value) {
	case "yes", "true", "1", "on":
		return true
	case "no", "false", "0", "off":
		return false
	}
	return fallback
}

// Layer applies the file over base and returns a new rule set. Fields the
// file does not mention keep the base value. Lists replace the base list
// wholesale unless the file is additive. A nil base layers over NewRuleSet.
func (f *RuleFile) Layer(base *RuleSet) *RuleSet {
	if base == nil {
		base = NewRuleSet()
	}
	rs := base.Clone()

	for key, field := range listFields {
		if !f.set[key] {
			continue
		}
		values := *field(f.Rules)
		if f.Append {
			*field(rs) = append(*field(rs), values...)
		} else {
			*field(rs) = append([]string(nil), values...)
		}
	}
	for key, field := range boolFields {
		if f.set[key] {
			*field(rs) = *field(f.Rules)
		}
	}
	if f.set["parser"] {
		rs.Parser = f.Rules.Parser
	}
	if f.set["replace_string"] {
		if f.Append {
			rs.Replace = append(rs.Replace, f.Rules.Replace...)
		} else {
			rs.Replace = append([]Replacement(nil), f.Rules.Replace...)
		}
	}
	return rs
}

// RuleStore resolves the rule set that applies to a host.
type RuleStore interface {
	// Resolve returns the rule set for host, trying the exact host first and
	// then progressively shorter parent domains. Returns ENOTFOUND if no rule
	// file applies.
	Resolve(host string) (*RuleSet, error)
}

// RuleSource reports which resolution step produced a rule set.
type RuleSource int

const (
	RuleSourceDefault RuleSource = iota
	RuleSourceHost
	RuleSourceFingerprint
)

func (s RuleSource) String() string {
	switch s {
	case RuleSourceHost:
		return "host"
	case RuleSourceFingerprint:
		return "fingerprint"
	}
	return "default"
}

// ResolveRuleSet resolves the rule set for a page: by host, then by
// fingerprint, then the default rule set. Store errors other than a miss
// are treated as a miss; the store is responsible for logging them.
func ResolveRuleSet(store RuleStore, fingerprints FingerprintTable, host, html string) (*RuleSet, RuleSource) {
	if store == nil {
		return NewRuleSet(), RuleSourceDefault
	}
	if host != "" {
		if rs, err := store.Resolve(host); err == nil {
			return rs, RuleSourceHost
		}
	}
	if len(fingerprints) > 0 {
		if fphost, ok := fingerprints.Match(html); ok {
			if rs, err := store.Resolve(fphost); err == nil {
				return rs, RuleSourceFingerprint
			}
		}
	}
	return NewRuleSet(), RuleSourceDefault
}
