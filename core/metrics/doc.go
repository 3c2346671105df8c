// Package metrics defines the recorder interfaces used to export emergency
// lifecycle, operator notices, officer positions and channel state to
// observability backends. Sinks can be combined with NewMultiSink; the factory
// returns a MultiSink automatically when several sinks are configured.
package metrics
