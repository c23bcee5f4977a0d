// Package notifications delivers sync events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Each event kind can be toggled independently; the sync coordinator
// depends only on the Service interface.
package notifications
