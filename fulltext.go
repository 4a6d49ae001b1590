// Package fulltext turns partial web feeds and plain web pages into
// full-text feeds. It fetches each referenced page, locates the article
// inside the surrounding page chrome using per-host rules, microformat
// conventions and a heuristic scorer, and re-emits a normalized feed.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., xpath/, goquery/, sqlite/, gofeed/).
package fulltext
