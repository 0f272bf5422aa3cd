// Package varmodel holds the client-side mirror of a device's variable tree.
//
// A device describes its control surface as modules: top-level Variables
// whose children (`n`) are further Variables, nested arbitrarily. Tables are
// Variables whose children are column definitions and whose value is a row
// sequence. The Model registers each module once, resolves identifiers by a
// depth-first search, tracks the deferred-compute state of every variable
// instance, and implements the value merge law that keeps a variable's cached
// value consistent with row-scoped and whole-column updates.
//
// The Model is owned by a single event loop. Registration and the module list
// are guarded so observers (health checks, viewers) can read them from other
// goroutines; Variables themselves are mutated only by the owner.
package varmodel
