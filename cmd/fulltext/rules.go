package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/fulltext"
)

// Run executes the rules command.
func (c *RulesCmd) Run(deps *Dependencies) error {
	host := strings.ToLower(strings.TrimSpace(c.Host))
	if host == "" {
		err := fulltext.Errorf(fulltext.EINVALID, "host required")
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	if deps.Rules == nil {
		fmt.Fprintln(deps.Stdout, "No rules directory configured; default rules apply.")
		printRuleSet(deps.Stdout, fulltext.NewRuleSet())
		return nil
	}

	rs, err := deps.Rules.Resolve(host)
	if fulltext.ErrorCode(err) == fulltext.ENOTFOUND {
		fmt.Fprintf(deps.Stdout, "No rules for %s; default rules apply.\n", host)
		printRuleSet(deps.Stdout, fulltext.NewRuleSet())
		return nil
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Rules for %s:\n", host)
	printRuleSet(deps.Stdout, rs)
	return nil
}

// printRuleSet writes rs in rule file syntax.
func printRuleSet(w io.Writer, rs *fulltext.RuleSet) {
	lists := []struct {
		key    string
		values []string
	}{
		{"title", rs.Title},
		{"body", rs.Body},
		{"author", rs.Author},
		{"date", rs.Date},
		{"strip", rs.Strip},
		{"strip_id_or_class", rs.StripIDOrClass},
		{"strip_image_src", rs.StripImageSrc},
		{"skip_entry", rs.SkipEntry},
		{"single_page_link", rs.SinglePageLink},
		{"single_page_link_in_feed", rs.SinglePageLinkInFeed},
		{"test_url", rs.TestURLs},
	}
	for _, l := range lists {
		for _, v := range l.values {
			fmt.Fprintf(w, "%s: %s\n", l.key, v)
		}
	}
	for _, r := range rs.Replace {
		fmt.Fprintf(w, "find_string: %s\nreplace_string: %s\n", r.Find, r.Replace)
	}
	fmt.Fprintf(w, "prune: %s\n", yesNo(rs.Prune))
	fmt.Fprintf(w, "tidy: %s\n", yesNo(rs.Tidy))
	fmt.Fprintf(w, "autodetect_on_failure: %s\n", yesNo(rs.AutodetectOnFailure))
	fmt.Fprintf(w, "parser: %s\n", rs.Parser)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
