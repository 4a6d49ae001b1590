package main

import (
	"fmt"

	"github.com/fwojciec/fulltext"
	ftgin "github.com/fwojciec/fulltext/gin"
)

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	if c.Watch && deps.Watch != nil {
		if err := deps.Watch(deps.Ctx); err != nil {
			deps.Logger.Warn("rule watch disabled", "err", err)
		}
	}

	fmt.Fprintf(deps.Stdout, "Listening on %s\n", c.Addr)
	srv := ftgin.NewServer(c.Addr, deps.Handler, deps.Logger)
	if err := srv.ListenAndServe(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}
	return nil
}

// Run executes the clean-cache command.
func (c *CleanCacheCmd) Run(deps *Dependencies) error {
	if deps.Cache == nil {
		err := fulltext.Errorf(fulltext.EINVALID, "the response cache is disabled")
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}

	n, err := deps.Cache.CleanExpired(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", fulltext.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Removed %d expired cache entries\n", n)
	return nil
}
