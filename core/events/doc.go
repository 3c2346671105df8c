// Package events defines what the dispatch engine publishes on the event bus.
//
// Available event types:
//   - LifecycleEvent: an emergency was received, assigned, accepted, declined,
//     changed status, resolved or removed
//   - Notice: an operator-facing message (no officers, assignment failed, ...)
//   - ConnectionEvent: the police channel changed state
//   - OfficerLocationEvent: an officer position broadcast by the backend
package events
