// Package app assembles a mirror: the session to the device, the engine
// reconciling its variable tree, the in-memory surface and the optional
// viewer and health server. It is decoupled from any specific entrypoint
// like a CLI.
package app
