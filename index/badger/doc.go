// Package badger implements index.Client on an embedded BadgerDB database,
// for local development and tests that should not touch a remote index.
package badger
