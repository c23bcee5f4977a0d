// Package backend replays queued actions against the pet-safety HTTP API.
//
// Each action type maps to one endpoint under api.base_url. Failures are
// tagged with the services error markers so the sync coordinator can record
// whether the backend was unreachable or refused the request.
package backend
