// Package notifications delivers operator alerts about batch job runs.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Individual event
// families can be switched off in the [notifications] section; suppressed
// events are dropped without error.
package notifications
