// Command petsync is the control CLI for the PetSync offline action queue.
//
// It queues, lists, retries and dismisses actions, triggers sync passes and
// manages the background daemon. Queue commands talk to a running daemon over
// its unix socket and fall back to opening the queue database directly when
// no daemon answers, so the queue stays usable while the daemon is down.
package main
