// Package transport carries frames between the mirror and a device. A Dialer
// opens one Conn per channel session; the Conn delivers inbound frames on a
// channel that is closed when the connection ends, and accepts outbound text
// frames from any goroutine.
package transport
