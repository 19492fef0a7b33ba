// Package progress carries crawl milestones (run, year and movie level) from
// the crawler to pluggable sinks. Emitting never blocks: events are buffered,
// batched on a background goroutine and fanned out to every sink.
package progress
