package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Stripe signs webhooks with a "t=<unix>,v1=<hex>" header where v1 is
// HMAC-SHA256 of "<t>.<raw body>" under the endpoint secret. The timestamp
// and signature arrive in Callback.Signature as that header value.
type Stripe struct {
	EndpointSecret string
}

func NewStripe(endpointSecret string) *Stripe { return &Stripe{EndpointSecret: endpointSecret} }

func (g *Stripe) Name() string { return "stripe" }

// CreateOrder opens a payment intent for the amount in minor units.
func (g *Stripe) CreateOrder(_ context.Context, amountCents uint32, _ string) (string, error) {
	if amountCents == 0 {
		return "", ErrInvalidAmount
	}
	return opaqueID("pi_"), nil
}

func (g *Stripe) VerifySignature(cb Callback) error {
	var ts, v1 string
	for _, part := range strings.Split(cb.Signature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, []byte(g.EndpointSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(cb.RawBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(v1)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (g *Stripe) Refund(_ context.Context, _ string, amountCents uint32) (string, error) {
	if amountCents == 0 {
		return "", ErrInvalidAmount
	}
	return opaqueID("re_"), nil
}
