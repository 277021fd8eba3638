// Package tickets implements passenger ticket sales on top of the checkout
// coordinator.
package tickets

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// StatusSold is the only ticket lifecycle state; tickets do not walk the
// parcel state machine.
const StatusSold = "SOLD"

// ErrTicketNotFound indicates the ticket does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

// Ticket is a sold passage. Business facts are immutable; pricing fields
// are fixed at sale time by the loyalty quote.
type Ticket struct {
	ID                    int64           `json:"id"`
	Code                  string          `json:"code"`
	OriginLocationID      int64           `json:"origin_location_id"`
	DestinationLocationID int64           `json:"destination_location_id"`
	DepartureAt           time.Time       `json:"departure_at"`
	Seat                  string          `json:"seat"`
	PassengerDoc          string          `json:"passenger_doc"`
	PassengerName         string          `json:"passenger_name"`
	CustomerDoc           string          `json:"customer_doc,omitempty"`
	CustomerName          string          `json:"customer_name,omitempty"`
	OriginalPrice         decimal.Decimal `json:"original_price"`
	Discount              decimal.Decimal `json:"discount"`
	FinalPrice            decimal.Decimal `json:"final_price"`
	PointsEarned          int64           `json:"points_earned"`
	PointsRedeemed        int64           `json:"points_redeemed"`
	Status                string          `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}
