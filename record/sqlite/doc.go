// Package sqlite implements the record provider interfaces over a local
// SQLite extract of the landmarks dataset.
package sqlite
