package shipments

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/checkout"
	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/lifecycle"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/internal/shared"
)

var securityCodePattern = regexp.MustCompile(`^\d{4}$`)

// seller is the slice of the checkout coordinator registration needs.
type seller interface {
	Sell(ctx context.Context, in checkout.SaleInput, insert checkout.InsertFunc) (*checkout.Result, error)
}

// Service implements shipment registration, transitions, and collection.
type Service struct {
	repo          Repository
	sell          seller
	proofs        ProofStore
	audit         *shared.AuditLogger
	logger        *slog.Logger
	invoiceSeries string
}

// NewService builds a Service. invoiceSeries is the dispatch-guide series
// shipment invoices are minted under.
func NewService(repo Repository, sell seller, proofs ProofStore, audit *shared.AuditLogger, logger *slog.Logger, invoiceSeries string) *Service {
	return &Service{repo: repo, sell: sell, proofs: proofs, audit: audit, logger: logger, invoiceSeries: invoiceSeries}
}

// RegisterInput carries the facts of a new parcel.
type RegisterInput struct {
	OriginLocationID      int64
	DestinationLocationID int64
	SenderDoc             string
	SenderName            string
	ReceiverDoc           string
	ReceiverName          string
	Description           string
	WeightKg              decimal.Decimal
	DeclaredValue         decimal.Decimal
	OriginalPrice         decimal.Decimal
	PointsRequested       int64
	OverridePrice         *decimal.Decimal
	SecurityCode          *string
}

// RegisterResult is the committed registration plus its invoice outcome.
type RegisterResult struct {
	Shipment       *Shipment          `json:"shipment"`
	QRPayload      string             `json:"qr_payload"`
	Invoice        *invoicing.Invoice `json:"invoice,omitempty"`
	InvoiceWarning string             `json:"invoice_warning,omitempty"`
}

// Register runs the registration sale: mints the ENC code, applies the
// sender's loyalty bookkeeping, and persists the shipment with its
// REGISTERED event, all in one transaction.
func (s *Service) Register(ctx context.Context, actor shared.Actor, in RegisterInput) (*RegisterResult, error) {
	if in.OriginLocationID == in.DestinationLocationID {
		return nil, fmt.Errorf("%w: origin and destination must differ", shared.ErrValidation)
	}
	if in.SecurityCode != nil && !securityCodePattern.MatchString(*in.SecurityCode) {
		return nil, fmt.Errorf("%w: security code must be exactly four digits", shared.ErrValidation)
	}

	var sh *Shipment
	res, err := s.sell.Sell(ctx, checkout.SaleInput{
		Domain:          sequence.DomainShipments,
		Day:             time.Now(),
		CustomerDoc:     in.SenderDoc,
		CustomerName:    in.SenderName,
		OriginalPrice:   in.OriginalPrice,
		PointsRequested: in.PointsRequested,
		OverridePrice:   in.OverridePrice,
		InvoiceSeries:   s.invoiceSeries,
		InvoiceDocType:  invoicing.DocTypeGuia,
		RefKind:         "shipment",
		Actor:           actor,
	}, func(ctx context.Context, st checkout.Stores, code string, q loyalty.Quote) (int64, error) {
		sh = &Shipment{
			Code:                  code,
			OriginLocationID:      in.OriginLocationID,
			DestinationLocationID: in.DestinationLocationID,
			SenderDoc:             in.SenderDoc,
			SenderName:            in.SenderName,
			ReceiverDoc:           in.ReceiverDoc,
			ReceiverName:          in.ReceiverName,
			Description:           in.Description,
			WeightKg:              in.WeightKg,
			DeclaredValue:         in.DeclaredValue,
			OriginalPrice:         q.OriginalPrice,
			Discount:              q.Discount,
			FinalPrice:            q.FinalPrice,
			PointsEarned:          q.PointsEarned,
			PointsRedeemed:        q.PointsRedeemed,
			Status:                StatusRegistered,
			SecurityCode:          in.SecurityCode,
		}
		if err := insertShipment(ctx, st.DB, sh); err != nil {
			return 0, err
		}
		_, err := lifecycle.Insert(ctx, st.DB, lifecycle.Event{
			DocKind:      lifecycle.KindShipment,
			DocID:        sh.ID,
			TargetStatus: string(StatusRegistered),
			ActorUserID:  actor.UserID,
			LocationID:   actor.LocationID,
		})
		return sh.ID, err
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		Shipment:       sh,
		QRPayload:      "andino://shipments/" + sh.Code,
		Invoice:        res.Invoice,
		InvoiceWarning: res.InvoiceWarning,
	}, nil
}

// Transition moves a shipment one step forward. The status the request was
// validated against is re-read under lock; a mismatch means another request
// won the race and the caller must retry with fresh state.
func (s *Service) Transition(ctx context.Context, actor shared.Actor, id int64, target Status, note *string) (*Shipment, error) {
	sh, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAct(actor, sh, ActionTransition) {
		return nil, fmt.Errorf("%w: actor location does not match shipment route", shared.ErrAuthorization)
	}
	if target == StatusCollected {
		return nil, fmt.Errorf("%w: collection goes through the collect operation", ErrInvalidTransition)
	}
	if !sh.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, sh.Status, target)
	}

	observed := sh.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockStatus(ctx, id)
		if err != nil {
			return err
		}
		if current != observed {
			return ErrConcurrentModification
		}
		if err := tx.UpdateStatus(ctx, id, target); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, lifecycle.Event{
			DocKind:      lifecycle.KindShipment,
			DocID:        id,
			TargetStatus: string(target),
			ActorUserID:  actor.UserID,
			LocationID:   actor.LocationID,
			Note:         note,
		})
	})
	if err != nil {
		return nil, err
	}
	sh.Status = target

	s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "shipments.transition",
		Entity:   "shipment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"code": sh.Code, "status": string(target)},
	})
	return sh, nil
}

// CollectInput carries the collection request.
type CollectInput struct {
	CollectorDoc string
	ProofPhoto   []byte
	SecurityCode *string
}

// Collect hands the parcel over: destination-bound actor, proof photo, and
// a matching security code when the shipment carries one.
func (s *Service) Collect(ctx context.Context, actor shared.Actor, id int64, in CollectInput) (*Shipment, error) {
	sh, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAct(actor, sh, ActionCollect) {
		return nil, fmt.Errorf("%w: only the destination agency collects", shared.ErrAuthorization)
	}
	if !sh.Status.CanTransitionTo(StatusCollected) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, sh.Status, StatusCollected)
	}
	if sh.SecurityCode != nil {
		if in.SecurityCode == nil || *in.SecurityCode == "" {
			return nil, ErrSecurityCodeRequired
		}
		if *in.SecurityCode != *sh.SecurityCode {
			return nil, ErrInvalidSecurityCode
		}
	}
	if len(in.ProofPhoto) == 0 {
		return nil, ErrProofRequired
	}

	proofKey, err := s.proofs.Save(ctx, in.ProofPhoto)
	if err != nil {
		return nil, fmt.Errorf("store proof photo: %w", err)
	}

	observed := sh.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockStatus(ctx, id)
		if err != nil {
			return err
		}
		if current != observed {
			return ErrConcurrentModification
		}
		if err := tx.SetCollected(ctx, id, in.CollectorDoc); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, lifecycle.Event{
			DocKind:      lifecycle.KindShipment,
			DocID:        id,
			TargetStatus: string(StatusCollected),
			ActorUserID:  actor.UserID,
			LocationID:   actor.LocationID,
			ProofPath:    &proofKey,
		})
	})
	if err != nil {
		return nil, err
	}
	sh.Status = StatusCollected
	sh.CollectedByDoc = &in.CollectorDoc
	now := time.Now()
	sh.CollectedAt = &now

	s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "shipments.collect",
		Entity:   "shipment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"code": sh.Code, "collector_doc": in.CollectorDoc},
	})
	return sh, nil
}

// Get reads a shipment with its event history.
func (s *Service) Get(ctx context.Context, id int64) (*Shipment, []lifecycle.Event, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode reads a shipment by printed code with its event history.
func (s *Service) GetByCode(ctx context.Context, code string) (*Shipment, []lifecycle.Event, error) {
	return s.repo.GetByCode(ctx, code)
}
