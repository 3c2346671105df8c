// Package factory builds pluggable modules, such as metrics sinks, from the
// `{type, conf}` entries of the configuration file:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf: {url: "http://localhost:8086", bucket: "dispatch"}
//
// Implementations register a Factory under their type name at init time and
// use Decode to read their settings.
package factory
