// Package notebook holds the ink data model shared by the codec, the storage
// adapters and the CLI.
//
// A Notebook is an ordered list of Cells; each Cell owns its Strokes and the
// optional transcription and execution output attached to it. The package also
// reads and writes the versioned JSON snapshot the drawing surface hands over,
// so callers never build cells from raw maps.
package notebook
