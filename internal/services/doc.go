// Package services defines shared utilities consumed by the sync coordinator
// and the backend integration.
//
// Key responsibilities:
//   - Context helpers that stamp action IDs, action types, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify which turns
//     an attempt failure into the error kind persisted on the queued action.
//
// Use these helpers when adding new backend calls so failure classification
// stays uniform across sync passes and manual retries.
package services
