package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Razorpay signs callbacks with HMAC-SHA256 over "order_id|payment_id"
// using the key secret, hex encoded.
type Razorpay struct {
	KeySecret string
}

func NewRazorpay(keySecret string) *Razorpay { return &Razorpay{KeySecret: keySecret} }

func (g *Razorpay) Name() string { return "razorpay" }

// CreateOrder registers an order for the amount in paise. Razorpay rejects
// zero-amount orders.
func (g *Razorpay) CreateOrder(_ context.Context, amountCents uint32, _ string) (string, error) {
	if amountCents == 0 {
		return "", ErrInvalidAmount
	}
	return opaqueID("order_"), nil
}

func (g *Razorpay) VerifySignature(cb Callback) error {
	mac := hmac.New(sha256.New, []byte(g.KeySecret))
	mac.Write([]byte(cb.OrderID + "|" + cb.PaymentID))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(cb.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (g *Razorpay) Refund(_ context.Context, _ string, amountCents uint32) (string, error) {
	if amountCents == 0 {
		return "", ErrInvalidAmount
	}
	return opaqueID("rfnd_"), nil
}
