//go:build cgosqlite

package main

// Registers the cgo sqlite driver; select it with --driver sqlite3.
import _ "github.com/mattn/go-sqlite3"
