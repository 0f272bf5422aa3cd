// Package outbound turns local intent into frames for the device.
//
// The Batcher accumulates deferred-compute requests and flushes them as a
// single command once the queue reaches its threshold or when the engine has
// just created nodes. User edits and structural commands are sent at once.
// Nothing leaves before the channel handshake completes, and every send arms a
// watchdog that declares the channel dead when the device stays silent.
package outbound
