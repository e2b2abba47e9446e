// Package preflight validates the local environment before codepencil runs
// code or touches projects.
//
// Each check returns a Result with a pass flag and a short detail line. The
// status command renders them; nothing here mutates state beyond probing.
package preflight
