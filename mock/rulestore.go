package mock

import "github.com/fwojciec/fulltext"

var _ fulltext.RuleStore = (*RuleStore)(nil)

// RuleStore is a mock implementation of fulltext.RuleStore.
type RuleStore struct {
	ResolveFn func(host string) (*fulltext.RuleSet, error)
}

func (s *RuleStore) Resolve(host string) (*fulltext.RuleSet, error) {
	return s.ResolveFn(host)
}

// StaticRules returns a RuleStore that serves fixed rule sets by exact
// host and reports ENOTFOUND for anything else.
func StaticRules(rules map[string]*fulltext.RuleSet) *RuleStore {
	return &RuleStore{
		ResolveFn: func(host string) (*fulltext.RuleSet, error) {
			if rs, ok := rules[host]; ok {
				return rs, nil
			}
			return nil, fulltext.Errorf(fulltext.ENOTFOUND, "no rules for %s", host)
		},
	}
}
