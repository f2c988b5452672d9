// Package loader saves uploaded files into a session folder and splits them
// into page-level documents.
//
// The Registry dispatches on file extension. PDF files are read with
// github.com/ledongthuc/pdf, one document per page. Text and markdown files
// are split on form feeds. Pages with no text are dropped; a file that has
// no text at all fails with domain.ErrNoText.
package loader
