package payment

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// PhonePe verifies callbacks with an X-VERIFY checksum:
// sha256(base64 payload + salt key) hex, suffixed with "###" and the salt
// index. The base64 payload arrives in Callback.RawBody.
type PhonePe struct {
	SaltKey   string
	SaltIndex string
}

func NewPhonePe(saltKey, saltIndex string) *PhonePe {
	return &PhonePe{SaltKey: saltKey, SaltIndex: saltIndex}
}

func (g *PhonePe) Name() string { return "phonepe" }

// CreateOrder starts a transaction for the amount in paise.
func (g *PhonePe) CreateOrder(_ context.Context, amountCents uint32, _ string) (string, error) {
	if amountCents == 0 {
		return "", ErrInvalidAmount
	}
	return opaqueID("MT"), nil
}

func (g *PhonePe) VerifySignature(cb Callback) error {
	sum := sha256.Sum256(append(append([]byte{}, cb.RawBody...), []byte(g.SaltKey)...))
	want := hex.EncodeToString(sum[:]) + "###" + g.SaltIndex
	if subtle.ConstantTimeCompare([]byte(want), []byte(cb.Signature)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

func (g *PhonePe) Refund(_ context.Context, _ string, amountCents uint32) (string, error) {
	if amountCents == 0 {
		return "", ErrInvalidAmount
	}
	return opaqueID("R"), nil
}
