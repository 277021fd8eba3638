// Package lifecycle stores the append-only event trail of sale documents.
package lifecycle

import (
	"context"
	"time"

	"github.com/andino-transportes/andino/internal/platform/db"
)

// Document kinds recorded in lifecycle_events.
const (
	KindTicket   = "TICKET"
	KindShipment = "SHIPMENT"
)

// Event records one status transition of a sale document. Events are never
// mutated or deleted; exactly one is appended per transition, in the same
// transaction as the status write.
type Event struct {
	ID           int64     `json:"id"`
	DocKind      string    `json:"doc_kind"`
	DocID        int64     `json:"doc_id"`
	TargetStatus string    `json:"target_status"`
	ActorUserID  int64     `json:"actor_user_id"`
	LocationID   *int64    `json:"location_id,omitempty"`
	Note         *string   `json:"note,omitempty"`
	ProofPath    *string   `json:"proof_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Insert appends an event within the caller's transaction.
func Insert(ctx context.Context, dbtx db.DBTX, e Event) (int64, error) {
	const query = `
		INSERT INTO lifecycle_events (doc_kind, doc_id, target_status, actor_user_id, location_id, note, proof_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := dbtx.QueryRow(ctx, query,
		e.DocKind, e.DocID, e.TargetStatus, e.ActorUserID, e.LocationID, e.Note, e.ProofPath,
	).Scan(&id)
	return id, err
}

// ListByDoc returns a document's events ordered by creation.
func ListByDoc(ctx context.Context, dbtx db.DBTX, kind string, docID int64) ([]Event, error) {
	const query = `
		SELECT id, doc_kind, doc_id, target_status, actor_user_id, location_id, note, proof_path, created_at
		FROM lifecycle_events
		WHERE doc_kind = $1 AND doc_id = $2
		ORDER BY created_at, id
	`
	rows, err := dbtx.Query(ctx, query, kind, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.DocKind, &e.DocID, &e.TargetStatus,
			&e.ActorUserID, &e.LocationID, &e.Note, &e.ProofPath, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
