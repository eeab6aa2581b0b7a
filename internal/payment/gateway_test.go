package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func razorpaySign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpaySignature(t *testing.T) {
	gw := NewRazorpay("rzp-secret")
	cb := Callback{
		OrderID:   "order_abc",
		PaymentID: "pay_123",
		Signature: razorpaySign("rzp-secret", "order_abc", "pay_123"),
	}
	assert.NoError(t, gw.VerifySignature(cb))

	cb.Signature = razorpaySign("wrong-secret", "order_abc", "pay_123")
	assert.ErrorIs(t, gw.VerifySignature(cb), ErrSignatureMismatch)

	cb.Signature = ""
	assert.ErrorIs(t, gw.VerifySignature(cb), ErrSignatureMismatch)
}

func TestStripeSignature(t *testing.T) {
	gw := NewStripe("whsec_test")
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write([]byte("1767225600."))
	mac.Write(body)
	sig := "t=1767225600,v1=" + hex.EncodeToString(mac.Sum(nil))

	assert.NoError(t, gw.VerifySignature(Callback{Signature: sig, RawBody: body}))
	assert.ErrorIs(t, gw.VerifySignature(Callback{Signature: sig, RawBody: []byte("tampered")}), ErrSignatureMismatch)
	assert.ErrorIs(t, gw.VerifySignature(Callback{Signature: "t=1767225600", RawBody: body}), ErrSignatureMismatch)
	assert.ErrorIs(t, gw.VerifySignature(Callback{Signature: "garbage", RawBody: body}), ErrSignatureMismatch)
}

func TestPhonePeSignature(t *testing.T) {
	gw := NewPhonePe("salt-key", "1")
	body := []byte("eyJzdWNjZXNzIjp0cnVlfQ==")
	sum := sha256.Sum256(append(body, []byte("salt-key")...))
	sig := hex.EncodeToString(sum[:]) + "###1"

	assert.NoError(t, gw.VerifySignature(Callback{Signature: sig, RawBody: body}))
	assert.ErrorIs(t, gw.VerifySignature(Callback{Signature: sig + "x", RawBody: body}), ErrSignatureMismatch)
	assert.ErrorIs(t, gw.VerifySignature(Callback{Signature: sig, RawBody: []byte("other")}), ErrSignatureMismatch)
}

func TestMockGatewayAcceptsEverything(t *testing.T) {
	gw := NewMock()
	assert.NoError(t, gw.VerifySignature(Callback{Signature: "anything"}))

	orderID, err := gw.CreateOrder(context.Background(), 1000, "booking-1")
	require.NoError(t, err)
	assert.NotEmpty(t, orderID)
}

func TestCreateOrderRejectsZeroAmount(t *testing.T) {
	for _, gw := range []Gateway{NewRazorpay("s"), NewStripe("whsec"), NewPhonePe("salt", "1")} {
		_, err := gw.CreateOrder(context.Background(), 0, "booking-1")
		assert.ErrorIs(t, err, ErrInvalidAmount, gw.Name())

		orderID, err := gw.CreateOrder(context.Background(), 2500, "booking-1")
		require.NoError(t, err, gw.Name())
		assert.NotEmpty(t, orderID)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(NewMock(), NewRazorpay("s"))

	gw, err := r.Get("razorpay")
	require.NoError(t, err)
	assert.Equal(t, "razorpay", gw.Name())

	gw, err = r.Get("MOCK")
	require.NoError(t, err)
	assert.Equal(t, "mock", gw.Name())

	_, err = r.Get("paypal")
	assert.ErrorIs(t, err, ErrUnknownGateway)
}
