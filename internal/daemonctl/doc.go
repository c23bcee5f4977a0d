// Package daemonctl launches, stops, and inspects the petsync daemon from the
// CLI side of the IPC socket.
package daemonctl
