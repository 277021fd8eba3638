package tickets

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/shared"
)

// SellRequest is the body of POST /tickets and POST /tickets/instant. The
// instant variant ignores the customer and points fields.
type SellRequest struct {
	OriginLocationID      int64     `json:"origin_location_id" validate:"required,gt=0"`
	DestinationLocationID int64     `json:"destination_location_id" validate:"required,gt=0"`
	DepartureAt           time.Time `json:"departure_at" validate:"required"`
	Seat                  string    `json:"seat" validate:"required,max=8"`
	PassengerDoc          string    `json:"passenger_doc" validate:"required,min=8,max=12"`
	PassengerName         string    `json:"passenger_name" validate:"required,max=120"`
	CustomerDoc           string    `json:"customer_doc,omitempty" validate:"omitempty,min=8,max=12"`
	CustomerName          string    `json:"customer_name,omitempty" validate:"omitempty,max=120"`
	OriginalPrice         string    `json:"original_price" validate:"required"`
	PointsRequested       int64     `json:"points_requested" validate:"gte=0"`
	OverridePrice         *string   `json:"override_price,omitempty"`
}

// TicketResponse pairs a ticket with its event trail.
type TicketResponse struct {
	Ticket *Ticket `json:"ticket"`
	Events any     `json:"events"`
}

func (r SellRequest) toInput() (SellInput, error) {
	in := SellInput{
		OriginLocationID:      r.OriginLocationID,
		DestinationLocationID: r.DestinationLocationID,
		DepartureAt:           r.DepartureAt,
		Seat:                  r.Seat,
		PassengerDoc:          r.PassengerDoc,
		PassengerName:         r.PassengerName,
		CustomerDoc:           r.CustomerDoc,
		CustomerName:          r.CustomerName,
		PointsRequested:       r.PointsRequested,
	}
	var err error
	if in.OriginalPrice, err = parseAmount("original_price", r.OriginalPrice); err != nil {
		return SellInput{}, err
	}
	if r.OverridePrice != nil {
		override, err := parseAmount("override_price", *r.OverridePrice)
		if err != nil {
			return SellInput{}, err
		}
		in.OverridePrice = &override
	}
	return in, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s must be a decimal number", shared.ErrValidation, field)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s cannot be negative", shared.ErrValidation, field)
	}
	return d, nil
}
