// Package export renders audit reports into on-disk artifacts. Every
// artifact is written to a temporary file first and moved into place
// with a rename, so readers never observe a partially written file.
package export
