package shipments

import "github.com/andino-transportes/andino/internal/shared"

// Action distinguishes what the actor wants to do to a shipment.
type Action int

const (
	// ActionTransition moves the shipment forward through the lifecycle.
	ActionTransition Action = iota
	// ActionCollect hands the parcel to its receiver.
	ActionCollect
)

// CanAct is the single authorization rule for shipment mutations. An actor
// bound to a location acts only on shipments touching that location; an
// unbound actor acts anywhere. Collection is stricter: only an actor bound
// to the destination may perform it, unbound actors included.
func CanAct(actor shared.Actor, sh *Shipment, action Action) bool {
	if action == ActionCollect {
		return actor.BoundTo(sh.DestinationLocationID)
	}
	if actor.LocationID == nil {
		return true
	}
	return actor.BoundTo(sh.OriginLocationID) || actor.BoundTo(sh.DestinationLocationID)
}
