package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/qrtoken"
	"github.com/kavelio/studio-booking/internal/repository"
)

// ErrNotPayable means the booking is not waiting for a payment.
var ErrNotPayable = errors.New("booking is not awaiting payment")

// PaymentStore is the persistence surface of the payments ledger.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByGatewayOrder(ctx context.Context, gateway, orderID string) (*model.Payment, error)
	GetCompletedByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error)
	MarkCompleted(ctx context.Context, id uint64, gatewayPaymentID string) (bool, error)
	MarkFailed(ctx context.Context, id uint64) error
	MarkRefunded(ctx context.Context, id uint64, amountCents uint32, refundRef string) error
}

// BookingStore provides the booking reads and the mirrored payment state
// write.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	SetPaymentStatus(ctx context.Context, id uint64, status string) error
}

// Issuer creates and revokes QR tokens when payments settle or unwind.
type Issuer interface {
	IssueForBooking(ctx context.Context, bookingID uint64) (*qrtoken.Issued, *qrtoken.GroupIssue, error)
	Revoke(ctx context.Context, bookingID uint64) error
}

// Releaser frees a refunded booking's seats. Implemented by the
// reservation coordinator.
type Releaser interface {
	ReleaseRefunded(ctx context.Context, bookingID, actorID uint64, reason string) error
}

// AuditLog records confirmations.
type AuditLog interface {
	Append(ctx context.Context, e *model.ActivityLog) error
}

// Emitter receives payment events, fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// Bridge connects gateway callbacks to the booking lifecycle. Gateway
// calls are bounded by Timeout; seat accounting never waits on a gateway.
type Bridge struct {
	gateways *Registry
	payments PaymentStore
	bookings BookingStore
	issuer   Issuer
	releaser Releaser
	audit    AuditLog
	events   Emitter
	timeout  time.Duration
}

// NewBridge wires a Bridge. A nil emitter disables events; a zero timeout
// defaults to ten seconds.
func NewBridge(gateways *Registry, payments PaymentStore, bookings BookingStore, issuer Issuer, releaser Releaser, audit AuditLog, events Emitter, timeout time.Duration) *Bridge {
	if events == nil {
		events = nopEmitter{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bridge{
		gateways: gateways, payments: payments, bookings: bookings,
		issuer: issuer, releaser: releaser, audit: audit, events: events,
		timeout: timeout,
	}
}

// CreateOrder opens a payment attempt for a booking on the named gateway
// and records a pending ledger row.
func (b *Bridge) CreateOrder(ctx context.Context, bookingID uint64, gatewayName string, actorID uint64) (*model.Payment, error) {
	booking, err := b.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actorID {
		return nil, repository.ErrForbidden
	}
	if booking.BookingStatus != model.BookingConfirmed || booking.PaymentStatus != model.PaymentPending {
		return nil, ErrNotPayable
	}
	gw, err := b.gateways.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	gctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	orderID, err := gw.CreateOrder(gctx, booking.TotalAmountCents, fmt.Sprintf("booking-%d", bookingID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	p := &model.Payment{
		BookingID:      bookingID,
		Gateway:        gw.Name(),
		GatewayOrderID: orderID,
		AmountCents:    booking.TotalAmountCents,
	}
	if err := b.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ConfirmResult reports what a confirmation did. AlreadyProcessed is true
// when the webhook was a retransmit and nothing changed.
type ConfirmResult struct {
	BookingID        uint64             `json:"booking_id"`
	AlreadyProcessed bool               `json:"already_processed"`
	Single           *qrtoken.Issued    `json:"qr,omitempty"`
	Group            *qrtoken.GroupIssue `json:"qr_group,omitempty"`
}

// Confirm settles a payment from a gateway callback. The signature is
// verified before anything is trusted. A repeated confirmation for the
// same order re-asserts the booking's paid mirror and issues tokens if
// they are missing, so a retry repairs a confirmation that died partway
// through instead of skipping it.
func (b *Bridge) Confirm(ctx context.Context, cb Callback) (*ConfirmResult, error) {
	gw, err := b.gateways.Get(cb.Gateway)
	if err != nil {
		return nil, err
	}
	if err := gw.VerifySignature(cb); err != nil {
		return nil, err
	}
	p, err := b.payments.GetByGatewayOrder(ctx, gw.Name(), cb.OrderID)
	if err != nil {
		return nil, err
	}
	bk, err := b.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}
	// The booking may have been cancelled while checkout was open. Funds
	// captured against a dead booking are failed here and left for a manual
	// gateway-side reversal.
	if bk.BookingStatus != model.BookingConfirmed {
		if err := b.payments.MarkFailed(ctx, p.ID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: booking %d is %s", ErrNotPayable, bk.ID, bk.BookingStatus)
	}
	changed, err := b.payments.MarkCompleted(ctx, p.ID, cb.PaymentID)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Completion was recorded by an earlier delivery that may have died
		// before mirroring it onto the booking or issuing tokens. Redo both;
		// the mirror update is idempotent and issuance skips bookings that
		// already hold live tokens.
		if err := b.bookings.SetPaymentStatus(ctx, p.BookingID, model.PaymentPaid); err != nil {
			return nil, err
		}
		res := &ConfirmResult{BookingID: p.BookingID, AlreadyProcessed: true}
		single, group, err := b.issuer.IssueForBooking(ctx, p.BookingID)
		if err != nil {
			log.Printf("qr issuance for booking %d failed: %v", p.BookingID, err)
			return res, nil
		}
		res.Single, res.Group = single, group
		return res, nil
	}
	if err := b.bookings.SetPaymentStatus(ctx, p.BookingID, model.PaymentPaid); err != nil {
		return nil, err
	}
	if err := b.audit.Append(ctx, &model.ActivityLog{
		ActionType: model.ActionPaymentConfirmed,
		ObjectType: "payment",
		ObjectID:   p.ID,
	}); err != nil {
		return nil, err
	}
	b.events.Emit(ctx, model.ActionPaymentConfirmed, map[string]any{
		"booking_id": p.BookingID,
		"payment_id": p.ID,
		"gateway":    gw.Name(),
		"amount":     p.AmountCents,
	})
	res := &ConfirmResult{BookingID: p.BookingID}
	single, group, err := b.issuer.IssueForBooking(ctx, p.BookingID)
	if err != nil {
		// confirmation already settled; token issuance can be redone by staff
		log.Printf("qr issuance for booking %d failed: %v", p.BookingID, err)
		return res, nil
	}
	res.Single, res.Group = single, group
	return res, nil
}

// RefundResult reports an executed refund.
type RefundResult struct {
	BookingID   uint64 `json:"booking_id"`
	AmountCents uint32 `json:"amount_cents"`
	RefundRef   string `json:"refund_ref"`
}

// Refund pays back part or all of a completed payment, revokes the
// booking's tokens and releases its seats. The gateway call happens first:
// if it fails nothing is mutated. A follow-up partial refund on a booking
// whose seats were already released only moves money and updates the
// ledger.
func (b *Bridge) Refund(ctx context.Context, bookingID uint64, amountCents uint32, reason string, actorID uint64) (*RefundResult, error) {
	p, err := b.payments.GetCompletedByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if amountCents > p.AmountCents-p.RefundAmountCents {
		return nil, ErrRefundExceedsPaid
	}
	bk, err := b.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	seatsHeld := bk.BookingStatus == model.BookingConfirmed
	refundRef := ""
	if amountCents > 0 {
		gw, err := b.gateways.Get(p.Gateway)
		if err != nil {
			return nil, err
		}
		paymentID := ""
		if p.GatewayPaymentID != nil {
			paymentID = *p.GatewayPaymentID
		}
		gctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		refundRef, err = gw.Refund(gctx, paymentID, amountCents)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
		}
	}
	if err := b.payments.MarkRefunded(ctx, p.ID, amountCents, refundRef); err != nil {
		return nil, err
	}
	if err := b.issuer.Revoke(ctx, bookingID); err != nil {
		log.Printf("token revocation for booking %d failed: %v", bookingID, err)
	}
	if seatsHeld {
		if err := b.releaser.ReleaseRefunded(ctx, bookingID, actorID, reason); err != nil {
			return nil, err
		}
	}
	return &RefundResult{BookingID: bookingID, AmountCents: amountCents, RefundRef: refundRef}, nil
}
