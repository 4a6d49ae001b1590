package main

import (
	"fmt"
	"html"

	"github.com/fwojciec/fulltext"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	u, err := fulltext.NormalizeFeedURL(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	resp, err := deps.Fetcher.Get(deps.Ctx, u, true)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}
	if !resp.Acceptable() {
		err := fulltext.Errorf(fulltext.EFETCH, "%s returned HTTP %d", u, resp.StatusCode)
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	result, err := deps.Extractor.Extract(string(resp.Body), resp.EffectiveURL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}
	if !result.Success {
		err := fulltext.Errorf(fulltext.ENOTFOUND, "no article content found at %s", resp.EffectiveURL)
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	formatted, err := deps.Formatter.Format(result.Body, fulltext.FormatOptions{
		BaseURL: resp.EffectiveURL,
		Links:   fulltext.LinkMode(c.Links),
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	if c.Markdown {
		md, err := deps.Converter.Convert(formatted.HTML, fulltext.ConvertOptions{
			BaseURL: resp.EffectiveURL,
			Title:   result.Title,
		})
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
			return err
		}
		fmt.Fprintln(deps.Stdout, md)
		return nil
	}

	if result.Title != "" {
		fmt.Fprintf(deps.Stdout, "<h1>%s</h1>\n", html.EscapeString(result.Title))
	}
	fmt.Fprintln(deps.Stdout, formatted.HTML)
	return nil
}
