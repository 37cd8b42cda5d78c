// Package sqlite implements auth storage over a single SQLite database.
//
// It owns schema migrations and keeps timestamp precision uniform so owner
// and credential records stay consistent across restarts.
package sqlite
