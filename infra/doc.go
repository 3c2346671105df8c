// Package infra holds the adapters behind the core interfaces: the police
// channel websocket, the officer roster client, metrics exporters, the MQTT
// mirror, Sentry and zerolog. Core packages never import infra.
package infra
