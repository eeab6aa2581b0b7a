// Package payment bridges external payment gateways to the booking
// lifecycle: order creation, webhook confirmation and refunds. Gateway HTTP
// specifics stay behind the Gateway interface; signature verification is
// implemented here because it must run before any payload is trusted.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrSignatureMismatch means a webhook payload failed integrity
	// verification. The request is rejected with no state change.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrGatewayFailure wraps downstream gateway errors and timeouts.
	ErrGatewayFailure = errors.New("gateway failure")
	// ErrUnknownGateway means no adapter is registered under that name.
	ErrUnknownGateway = errors.New("unknown gateway")
	// ErrRefundExceedsPaid means the requested refund is larger than the
	// refundable remainder of the payment.
	ErrRefundExceedsPaid = errors.New("refund exceeds paid amount")
	// ErrInvalidAmount means the order or refund amount is outside what the
	// gateway accepts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Callback carries a gateway's payment confirmation payload. Which fields a
// gateway reads depends on its signature convention.
type Callback struct {
	Gateway   string `json:"gateway"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp,omitempty"`
	RawBody   []byte `json:"-"`
}

// Gateway is one payment provider. CreateOrder and Refund talk to the
// provider and must be called with a timeout context; VerifySignature is
// pure computation.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, amountCents uint32, receipt string) (orderID string, err error)
	VerifySignature(cb Callback) error
	Refund(ctx context.Context, gatewayPaymentID string, amountCents uint32) (refundRef string, err error)
}

// Registry holds the configured gateways by name.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry builds a Registry from the given gateways.
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Name()] = gw
	}
	return r
}

// Get resolves a gateway by name, case-insensitively.
func (r *Registry) Get(name string) (Gateway, error) {
	gw, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return gw, nil
}

// Names lists the registered gateway names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		out = append(out, name)
	}
	return out
}

func opaqueID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
