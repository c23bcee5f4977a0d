// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Action
// payloads reuse the HTTP API representations from internal/api so both
// surfaces report the same fields.
//
// Add new RPC endpoints as service methods here and keep request types stable
// so older CLI builds keep working against a newer daemon.
package ipc
