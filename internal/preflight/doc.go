// Package preflight provides readiness checks for the filesystem paths and
// remote services PetSync depends on.
//
// These checks run in two contexts:
//   - The CLI "petsync preflight" command runs RunAll and prints every result.
//   - The CLI "petsync status" command uses individual check functions
//     (CheckBackend, CheckConnectivity) to annotate the status report.
//
// Checks never mutate the queue; they only report what a sync would hit.
package preflight
