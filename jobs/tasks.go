// Package jobs defines the asynq task types and the background worker that
// processes them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeInvoiceRetry re-submits an ERROR invoice to the gateway.
	TaskTypeInvoiceRetry = "invoice:retry"
	// TaskTypeSequenceProvision seeds the daily counter rows ahead of time.
	TaskTypeSequenceProvision = "sequence:provision"
)

// InvoiceRetryPayload identifies the invoice to re-submit.
type InvoiceRetryPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// NewInvoiceRetryTask constructs an invoice retry task.
func NewInvoiceRetryTask(payload InvoiceRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeInvoiceRetry, data), nil
}

// SequenceProvisionPayload lists the daily domains to seed.
type SequenceProvisionPayload struct {
	Domains []string `json:"domains"`
}

// NewSequenceProvisionTask constructs a counter provisioning task.
func NewSequenceProvisionTask(domains []string) (*asynq.Task, error) {
	data, err := json.Marshal(SequenceProvisionPayload{Domains: domains})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSequenceProvision, data), nil
}
