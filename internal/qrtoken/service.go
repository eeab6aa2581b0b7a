// Package qrtoken issues and redeems check-in credentials. A raw token is a
// random UUID handed out once; storage and lookup use a keyed hash so the
// secret never lands in the database or in logs.
package qrtoken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/repository"
)

var (
	// ErrInvalidToken means the token is unknown or deactivated.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired means the token's redemption window has closed.
	ErrExpired = errors.New("token expired")
	// ErrAlreadyConsumed means the token's use budget is spent.
	ErrAlreadyConsumed = errors.New("token already consumed")
	// ErrBookingNotConfirmed means the backing booking is not a paid,
	// confirmed booking.
	ErrBookingNotConfirmed = errors.New("booking not confirmed")
)

// TokenStore is the persistence surface the service needs for tokens.
type TokenStore interface {
	Insert(ctx context.Context, t *model.QRToken) error
	GetByHash(ctx context.Context, hash string) (*model.QRToken, error)
	ConsumeUse(ctx context.Context, hash string) (bool, error)
	CountActiveForBooking(ctx context.Context, bookingID uint64) (int, error)
	DeactivateForBooking(ctx context.Context, bookingID uint64) error
	GroupStats(ctx context.Context, groupID uint64) (total, attended int, err error)
}

// BookingStore provides the booking lookups verification depends on.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	MarkAttended(ctx context.Context, id uint64) error
}

// SlotStore resolves a booking's slot to compute token expiry.
type SlotStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Slot, error)
}

// AuditLog records successful redemptions.
type AuditLog interface {
	Append(ctx context.Context, e *model.ActivityLog) error
}

// Emitter receives qr_scanned events, fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

// Config holds the signing secret and the redemption budgets per token
// type. The multi and master budgets are effectively unbounded passes and
// stay configurable rather than hardcoded.
type Config struct {
	Secret      string
	GraceWindow time.Duration
	SingleUses  uint32
	GroupUses   uint32
	MultiUses   uint32
	MasterUses  uint32
}

// DefaultConfig returns the stock budgets: single=1, group=50, multi=999,
// master=9999 and a 2 hour grace window after slot end.
func DefaultConfig(secret string) Config {
	return Config{
		Secret:      secret,
		GraceWindow: 2 * time.Hour,
		SingleUses:  1,
		GroupUses:   50,
		MultiUses:   999,
		MasterUses:  9999,
	}
}

// Service issues and verifies tokens.
type Service struct {
	cfg      Config
	tokens   TokenStore
	bookings BookingStore
	slots    SlotStore
	audit    AuditLog
	events   Emitter
	now      func() time.Time
}

// NewService wires a Service. A nil emitter disables events.
func NewService(cfg Config, tokens TokenStore, bookings BookingStore, slots SlotStore, audit AuditLog, events Emitter) *Service {
	if events == nil {
		events = nopEmitter{}
	}
	return &Service{
		cfg: cfg, tokens: tokens, bookings: bookings, slots: slots,
		audit: audit, events: events, now: time.Now,
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

func (s *Service) hash(raw string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) maxUses(typ string) uint32 {
	switch typ {
	case model.TokenGroup:
		return s.cfg.GroupUses
	case model.TokenMulti:
		return s.cfg.MultiUses
	case model.TokenMaster:
		return s.cfg.MasterUses
	default:
		return s.cfg.SingleUses
	}
}

// Issued pairs a stored token with its raw value. The raw value exists only
// in this struct and in the response that carries it to the client.
type Issued struct {
	Raw   string         `json:"token"`
	Token *model.QRToken `json:"details"`
}

// Issue creates one token of the given type for a confirmed booking. The
// token expires a grace window after the slot ends.
func (s *Service) Issue(ctx context.Context, bookingID uint64, typ string) (*Issued, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BookingStatus != model.BookingConfirmed {
		return nil, ErrBookingNotConfirmed
	}
	return s.issue(ctx, b, typ, nil)
}

func (s *Service) issue(ctx context.Context, b *model.Booking, typ string, groupID *uint64) (*Issued, error) {
	slot, err := s.slots.GetByID(ctx, b.SlotID)
	if err != nil {
		return nil, err
	}
	raw := uuid.NewString()
	t := &model.QRToken{
		TokenHash: s.hash(raw),
		BookingID: b.ID,
		SlotID:    b.SlotID,
		GroupID:   groupID,
		Type:      typ,
		MaxUses:   s.maxUses(typ),
		ExpiresAt: slot.EndsAt.Add(s.cfg.GraceWindow),
		Active:    true,
	}
	if err := s.tokens.Insert(ctx, t); err != nil {
		return nil, err
	}
	return &Issued{Raw: raw, Token: t}, nil
}

// GroupIssue is the result of issuing tokens for a multi-attendee booking:
// one master token for the organizer and one single-use member token per
// attendee.
type GroupIssue struct {
	Master  *Issued   `json:"master"`
	Members []*Issued `json:"members"`
}

// IssueForBooking picks the issuance shape from the attendee count: one
// single-use token for a solo booking, a group issuance otherwise. A
// booking that already holds live tokens gets nothing, so a replayed
// payment confirmation cannot mint duplicates.
func (s *Service) IssueForBooking(ctx context.Context, bookingID uint64) (*Issued, *GroupIssue, error) {
	n, err := s.tokens.CountActiveForBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if n > 0 {
		return nil, nil, nil
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b.BookingStatus != model.BookingConfirmed {
		return nil, nil, ErrBookingNotConfirmed
	}
	if b.AttendeeCount <= 1 {
		issued, err := s.issue(ctx, b, model.TokenSingle, nil)
		return issued, nil, err
	}
	group, err := s.issueGroup(ctx, b)
	return nil, group, err
}

// IssueGroup creates a master token plus per-member single-use tokens for a
// multi-attendee booking, linked through the master token's ID.
func (s *Service) IssueGroup(ctx context.Context, bookingID uint64) (*GroupIssue, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BookingStatus != model.BookingConfirmed {
		return nil, ErrBookingNotConfirmed
	}
	return s.issueGroup(ctx, b)
}

func (s *Service) issueGroup(ctx context.Context, b *model.Booking) (*GroupIssue, error) {
	master, err := s.issue(ctx, b, model.TokenGroup, nil)
	if err != nil {
		return nil, err
	}
	out := &GroupIssue{Master: master}
	for i := uint32(0); i < b.AttendeeCount; i++ {
		gid := master.Token.ID
		member, err := s.issue(ctx, b, model.TokenSingle, &gid)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, member)
	}
	return out, nil
}

// Verify redeems one use of a token. The use-count increment is a single
// guarded update, so two near-simultaneous scans of the same token cannot
// both count.
func (s *Service) Verify(ctx context.Context, raw string, scannerID uint64) (*model.AttendanceRecord, error) {
	hash := s.hash(raw)
	t, err := s.tokens.GetByHash(ctx, hash)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrInvalidToken
	}
	if s.now().After(t.ExpiresAt) {
		return nil, ErrExpired
	}
	b, err := s.bookings.GetByID(ctx, t.BookingID)
	if err != nil {
		return nil, err
	}
	if b.BookingStatus != model.BookingConfirmed || b.PaymentStatus != model.PaymentPaid {
		return nil, ErrBookingNotConfirmed
	}
	consumed, err := s.tokens.ConsumeUse(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrAlreadyConsumed
	}
	if err := s.bookings.MarkAttended(ctx, b.ID); err != nil {
		return nil, err
	}
	rec := &model.AttendanceRecord{
		BookingID: b.ID,
		SlotID:    t.SlotID,
		TokenType: t.Type,
		UseNumber: t.UsedCount + 1,
		ScannerID: scannerID,
		ScannedAt: s.now().UTC(),
	}
	// The use is already consumed at this point; an audit failure must not
	// make the scanner treat a valid check-in as rejected.
	if err := s.audit.Append(ctx, &model.ActivityLog{
		ActionType: model.ActionQRScanned,
		ObjectType: "qr_token",
		ObjectID:   t.ID,
		ActorID:    scannerID,
		Metadata:   "",
	}); err != nil {
		log.Printf("audit append for token %d failed: %v", t.ID, err)
	}
	s.events.Emit(ctx, model.ActionQRScanned, map[string]any{
		"booking_id": b.ID,
		"slot_id":    t.SlotID,
		"token_type": t.Type,
		"scanner_id": scannerID,
	})
	return rec, nil
}

// Revoke deactivates every token issued for a booking. Cancelled and
// refunded bookings must not check in.
func (s *Service) Revoke(ctx context.Context, bookingID uint64) error {
	return s.tokens.DeactivateForBooking(ctx, bookingID)
}

// GroupAttendance reports what share of a group's member tokens has been
// redeemed, in whole percent. Master token usage does not count.
func (s *Service) GroupAttendance(ctx context.Context, groupID uint64) (int, error) {
	total, attended, err := s.tokens.GroupStats(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return attended * 100 / total, nil
}
