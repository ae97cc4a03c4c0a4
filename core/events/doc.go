// Package events defines the dispatch lifecycle events emitted on the event bus.
//
// Available event types:
//   - RequestQueued: intake found no available unit, request parked PENDING
//   - RequestAssigned: a unit was bound to a request
//   - RequestCompleted: a run finished and the unit returned to base
//   - StatusChanged: an ambulance status/position transition
package events
