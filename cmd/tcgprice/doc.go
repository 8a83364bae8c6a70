// Package main hosts the tcgprice CLI entrypoint and command graph.
//
// Every batch job class (crawl, fetch, queue, popular, notify, link) is a
// subcommand that runs once under its job lock and exits, so the commands can
// be driven by cron or systemd timers. The schedule command runs the same jobs
// in-process on the cron specs from the [schedule] config section.
//
// Keep this package thin: new behaviour belongs in the internal packages and
// is surfaced here through commands or flags.
package main
