// Package build holds application metadata set at build time.
package build

// Slug is the name used for binaries, config directories and env prefixes.
const Slug = "stomp"

// Version is set via ldflags at build time.
var Version = "0.0.0"
