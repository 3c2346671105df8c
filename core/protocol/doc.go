// Package protocol defines the JSON envelopes exchanged with the dispatch
// backend over the police channel.
//
// Inbound frames are wrapped as {"type": ..., "data": {...}}:
//   - new_emergency
//   - officer_location_update
//   - task_status_update
//   - threat_resolved
//
// Outbound commands are flat objects carrying their own "type":
//   - accept_emergency
//   - location_update
//   - resolve_emergency
package protocol
