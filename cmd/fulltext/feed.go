package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/crawl"
)

// Run executes the feed command.
func (c *FeedCmd) Run(deps *Dependencies) error {
	u, err := fulltext.NormalizeFeedURL(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	lang := deps.Language
	if c.Lang >= 0 {
		if c.Lang > int(fulltext.LanguageDetectAlways) {
			err := fulltext.Errorf(fulltext.EINVALID, "--lang must be between 0 and 3")
			fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
			return err
		}
		lang = fulltext.LanguageMode(c.Lang)
	}

	w, ok := deps.Writers[c.Format]
	if !ok {
		err := fulltext.Errorf(fulltext.EINVALID, "unsupported format %q", c.Format)
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	feed, err := deps.Builder.Build(deps.Ctx, fulltext.FeedRequest{
		URL:              u,
		Max:              c.Max,
		Links:            fulltext.LinkMode(c.Links),
		ExcludeOnFailure: c.ExcludeFailed,
		HTMLOnly:         c.HTML,
		Language:         lang,
		Pattern:          c.What,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	return w.Write(deps.Stdout, feed)
}

// progressPrinter reports each processed item on w.
func progressPrinter(w io.Writer) crawl.ProgressFunc {
	return func(e crawl.ProgressEvent) {
		switch e.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(w, "Processing %d items\n", e.Total)
		case crawl.ProgressCompleted:
			fmt.Fprintf(w, "  [%d/%d] %s\n", e.Completed, e.Total, e.URL)
		case crawl.ProgressFailed:
			fmt.Fprintf(w, "  [%d/%d] %s (failed: %s)\n", e.Completed, e.Total, e.URL, fulltext.ErrorMessage(e.Error))
		case crawl.ProgressSkipped:
			fmt.Fprintf(w, "  [%d/%d] %s (skipped)\n", e.Completed, e.Total, e.URL)
		case crawl.ProgressFinished:
			fmt.Fprintf(w, "Done: %d items\n", e.Completed)
		}
	}
}
