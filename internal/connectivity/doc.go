// Package connectivity tracks whether the pet-safety backend is reachable.
//
// An Observer holds the current State, probes on an interval, and re-probes
// immediately when the kernel reports a network interface change (netlink) or
// when the optional state file changes (fsnotify). Subscribers receive each
// Transition so the sync coordinator can start a pass when the device comes
// back online.
package connectivity
