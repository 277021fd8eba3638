package shipments

import (
	"errors"
	"fmt"

	"github.com/andino-transportes/andino/internal/shared"
)

var (
	// ErrShipmentNotFound indicates the shipment does not exist.
	ErrShipmentNotFound = errors.New("shipment not found")
	// ErrInvalidTransition indicates the requested target is not the
	// current status's successor.
	ErrInvalidTransition = errors.New("invalid shipment transition")
	// ErrConcurrentModification indicates the status changed between
	// request validation and the locked write.
	ErrConcurrentModification = fmt.Errorf("%w: shipment modified concurrently", shared.ErrConflict)
	// ErrSecurityCodeRequired indicates the shipment carries a security
	// code and none was submitted.
	ErrSecurityCodeRequired = errors.New("security code required")
	// ErrInvalidSecurityCode indicates the submitted code does not match.
	ErrInvalidSecurityCode = errors.New("invalid security code")
	// ErrProofRequired indicates collection lacks a proof-of-delivery photo.
	ErrProofRequired = errors.New("proof of delivery photo required")
)
