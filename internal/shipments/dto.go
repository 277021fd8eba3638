package shipments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/shared"
)

// RegisterRequest is the body of POST /shipments. Money fields arrive as
// strings to keep cent precision out of float territory.
type RegisterRequest struct {
	OriginLocationID      int64   `json:"origin_location_id" validate:"required,gt=0"`
	DestinationLocationID int64   `json:"destination_location_id" validate:"required,gt=0"`
	SenderDoc             string  `json:"sender_doc" validate:"required,min=8,max=12"`
	SenderName            string  `json:"sender_name" validate:"required,max=120"`
	ReceiverDoc           string  `json:"receiver_doc" validate:"required,min=8,max=12"`
	ReceiverName          string  `json:"receiver_name" validate:"required,max=120"`
	Description           string  `json:"description" validate:"required,max=500"`
	WeightKg              string  `json:"weight_kg" validate:"required"`
	DeclaredValue         string  `json:"declared_value" validate:"required"`
	OriginalPrice         string  `json:"original_price" validate:"required"`
	PointsRequested       int64   `json:"points_requested" validate:"gte=0"`
	OverridePrice         *string `json:"override_price,omitempty"`
	SecurityCode          *string `json:"security_code,omitempty" validate:"omitempty,len=4,numeric"`
}

// TransitionRequest is the body of PATCH /shipments/{id}/status.
type TransitionRequest struct {
	TargetStatus string  `json:"target_status" validate:"required"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// CollectRequest is the body of POST /shipments/{id}/collect.
type CollectRequest struct {
	CollectorDoc     string  `json:"collector_doc" validate:"required,min=8,max=12"`
	ProofPhotoBase64 string  `json:"proof_photo_base64" validate:"required"`
	SecurityCode     *string `json:"security_code,omitempty"`
}

// ShipmentResponse pairs a shipment with its event trail.
type ShipmentResponse struct {
	Shipment *Shipment `json:"shipment"`
	Events   any       `json:"events"`
}

func (r RegisterRequest) toInput() (RegisterInput, error) {
	in := RegisterInput{
		OriginLocationID:      r.OriginLocationID,
		DestinationLocationID: r.DestinationLocationID,
		SenderDoc:             r.SenderDoc,
		SenderName:            r.SenderName,
		ReceiverDoc:           r.ReceiverDoc,
		ReceiverName:          r.ReceiverName,
		Description:           r.Description,
		PointsRequested:       r.PointsRequested,
		SecurityCode:          r.SecurityCode,
	}
	var err error
	if in.WeightKg, err = parseAmount("weight_kg", r.WeightKg); err != nil {
		return RegisterInput{}, err
	}
	if in.DeclaredValue, err = parseAmount("declared_value", r.DeclaredValue); err != nil {
		return RegisterInput{}, err
	}
	if in.OriginalPrice, err = parseAmount("original_price", r.OriginalPrice); err != nil {
		return RegisterInput{}, err
	}
	if r.OverridePrice != nil {
		override, err := parseAmount("override_price", *r.OverridePrice)
		if err != nil {
			return RegisterInput{}, err
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
