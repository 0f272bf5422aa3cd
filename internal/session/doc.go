// Package session owns the channel to one device. It dials, runs the single
// event loop that feeds inbound frames and user interactions to the engine
// in arrival order, and reconnects after a fixed delay when the channel
// fails or the watchdog fires.
package session
