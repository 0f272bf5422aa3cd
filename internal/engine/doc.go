// Package engine materializes the device's variable tree onto a
// render.Renderer and keeps both synchronized with inbound messages.
//
// The engine is driven by a single goroutine: HandleText, HandleModule,
// ApplyUpdate and HandleInteraction must not be called concurrently. User
// interaction with the surface reaches the engine as Interaction values routed
// through a sink, so the owner of the engine can serialize edits with inbound
// frames. Live-preview notifications (the `input` event of ranges and
// coordinates) stay local to the surface and bypass the sink.
//
// Every variable node is bound once, at materialization, to a Shape. Updates
// dispatch on the cached Shape and never re-derive it from the variable type.
package engine
