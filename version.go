package weft

// Version is the toolchain version reported by the CLI and stamped into
// generated output.
const Version = "0.1.0"

// BuildDate is overridden at release time via -ldflags.
var BuildDate = "unknown"
