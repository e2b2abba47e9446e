// Package export renders notebook cells to formats meant for reading rather
// than re-editing: a multi-page PDF of the whole notebook and a PNG of one
// cell's SVG document.
package export
