// Package config loads the mirror's HCL configuration: the `device` block
// describing how to reach the device and the `ui` block holding surface
// preferences. Expressions may reference the process environment through
// the `env` variable, e.g. url = "ws://${env.STARMOD_HOST}/ws".
//
// Several files may be given; later blocks override earlier ones attribute
// by attribute.
package config
