// Package preflight provides readiness checks for the tools, directories, and
// registry credentials liepavoice depends on.
//
// These checks run in two contexts:
//   - extract and assemble call RunAll before doing any work and stop when a
//     required check fails.
//   - The "liepavoice doctor" command renders every check so an operator can
//     fix the environment up front.
//
// Registry checks only run when publishing is requested.
package preflight
