// Package testutil holds fakes shared by package tests: a thread-safe log
// buffer and an in-memory transport.
package testutil
