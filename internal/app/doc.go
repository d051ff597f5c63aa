// Package app is the composition root. It turns a validated Config into a
// running analysis: load the HCL model, build the partition, property source,
// relay, engine and sinks, then drive the requested number of cycles,
// decoupled from any specific entrypoint like a CLI.
package app
