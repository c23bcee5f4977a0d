// Package logs reads the daemon's rotated JSON log file for the CLI.
//
// Tail returns the most recent lines or everything written after a known
// offset, Follow streams new lines as fsnotify reports writes, and ParseEntry
// turns a line written by the logging package's JSON handler into an Entry
// that a Filter can match by level, component or action id.
package logs
