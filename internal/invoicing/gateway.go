package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/shared"
)

// GatewayDocument is the payload submitted to the e-invoicing provider.
type GatewayDocument struct {
	Series       string          `json:"series"`
	Number       int64           `json:"number"`
	DocType      string          `json:"doc_type"`
	CustomerDoc  string          `json:"customer_doc,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Total        decimal.Decimal `json:"total"`
	IssuedAt     time.Time       `json:"issued_at"`
}

// GatewayReceipt is the provider's acknowledgement.
type GatewayReceipt struct {
	ExternalID string `json:"id"`
	Status     string `json:"status"`
}

// Gateway submits documents to the external e-invoicing provider. Calls
// carry their own timeout and are only made after the sale transaction has
// committed; their failure never invalidates the sale.
type Gateway interface {
	Submit(ctx context.Context, doc GatewayDocument) (GatewayReceipt, error)
	Void(ctx context.Context, externalID, reason string) error
}

// HTTPGateway talks to the provider's REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway builds a gateway client with its own request timeout.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit sends the document for emission.
func (g *HTTPGateway) Submit(ctx context.Context, doc GatewayDocument) (GatewayReceipt, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return GatewayReceipt{}, fmt.Errorf("%w: marshal document: %v", shared.ErrUpstreamGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return GatewayReceipt{}, fmt.Errorf("%w: build request: %v", shared.ErrUpstreamGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return GatewayReceipt{}, fmt.Errorf("%w: submit: %v", shared.ErrUpstreamGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return GatewayReceipt{}, fmt.Errorf("%w: submit returned %d", shared.ErrUpstreamGateway, resp.StatusCode)
	}

	var rcpt GatewayReceipt
	if err := json.NewDecoder(resp.Body).Decode(&rcpt); err != nil {
		return GatewayReceipt{}, fmt.Errorf("%w: decode receipt: %v", shared.ErrUpstreamGateway, err)
	}
	return rcpt, nil
}

// Void requests annulment of a previously emitted document.
func (g *HTTPGateway) Void(ctx context.Context, externalID, reason string) error {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("%w: marshal void: %v", shared.ErrUpstreamGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/documents/"+externalID+"/void", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", shared.ErrUpstreamGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: void: %v", shared.ErrUpstreamGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: void returned %d", shared.ErrUpstreamGateway, resp.StatusCode)
	}
	return nil
}
