// Package shipments implements parcel registration, the lifecycle state
// machine, and proof-of-delivery collection.
package shipments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the parcel lifecycle. Transitions are strictly forward
// with exactly one successor per state; COLLECTED is terminal.
type Status string

const (
	StatusRegistered  Status = "REGISTERED"
	StatusInWarehouse Status = "IN_WAREHOUSE"
	StatusInTransit   Status = "IN_TRANSIT"
	StatusArrived     Status = "ARRIVED"
	StatusCollected   Status = "COLLECTED"
)

var successor = map[Status]Status{
	StatusRegistered:  StatusInWarehouse,
	StatusInWarehouse: StatusInTransit,
	StatusInTransit:   StatusArrived,
	StatusArrived:     StatusCollected,
}

// CanTransitionTo reports whether target is the single allowed successor.
func (s Status) CanTransitionTo(target Status) bool {
	next, ok := successor[s]
	return ok && next == target
}

// ParseStatus validates a client-supplied status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusRegistered, StatusInWarehouse, StatusInTransit, StatusArrived, StatusCollected:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown shipment status %q", raw)
}

// Shipment is a parcel record. Business facts are immutable after
// registration; only status and collection fields change, and only through
// the state machine. The security code is never serialized.
type Shipment struct {
	ID                    int64           `json:"id"`
	Code                  string          `json:"code"`
	OriginLocationID      int64           `json:"origin_location_id"`
	DestinationLocationID int64           `json:"destination_location_id"`
	SenderDoc             string          `json:"sender_doc"`
	SenderName            string          `json:"sender_name"`
	ReceiverDoc           string          `json:"receiver_doc"`
	ReceiverName          string          `json:"receiver_name"`
	Description           string          `json:"description"`
	WeightKg              decimal.Decimal `json:"weight_kg"`
	DeclaredValue         decimal.Decimal `json:"declared_value"`
	OriginalPrice         decimal.Decimal `json:"original_price"`
	Discount              decimal.Decimal `json:"discount"`
	FinalPrice            decimal.Decimal `json:"final_price"`
	PointsEarned          int64           `json:"points_earned"`
	PointsRedeemed        int64           `json:"points_redeemed"`
	Status                Status          `json:"status"`
	SecurityCode          *string         `json:"-"`
	CollectedByDoc        *string         `json:"collected_by_doc,omitempty"`
	CollectedAt           *time.Time      `json:"collected_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}
