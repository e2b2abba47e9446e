// Package storage holds the persistence procedure shared by the project
// backends.
//
// A project is a flat set of named documents: one SVG per cell plus
// manifest.json. The live-handle backend (package livehandle) maps those
// names onto a directory; the archive backend (package archive) maps them onto
// zip members. Both hand a Source or Sink to Save and Load here, so the
// document naming, manifest shape, write ordering, and fallback rules are
// identical no matter where the bytes live.
//
// Backends never return Go errors from their public Save and Load methods.
// Every outcome is folded into a Result so callers can tell a user who
// declined the access grant (Cancelled) from a real failure.
package storage
