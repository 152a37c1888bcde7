// Package rest implements the record provider interfaces against an HTTP
// JSON records API.
package rest
