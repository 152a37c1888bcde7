// Package file implements record.SourceTextProvider over a directory of
// plain-text files, one per entity.
package file
