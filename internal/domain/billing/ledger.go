package billing

import (
	"context"
	"errors"
	"time"

	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/user"
)

var (
	ErrEntryUserRequired = errors.New("billing: ledger entry requires a user")
	ErrEntryType         = errors.New("billing: unknown ledger entry type")
)

type EntryID string

type EntryType string

const (
	EntryPayment EntryType = "payment"
	EntryPayout  EntryType = "payout"
	EntryFee     EntryType = "fee"
	EntryRefund  EntryType = "refund"
)

// LedgerEntry is an immutable record of a financial movement. Once appended
// it is never updated or deleted; corrections are new entries.
type LedgerEntry struct {
	ID          EntryID
	InvoiceID   InvoiceID // empty for movements not tied to an invoice
	UserID      user.ID
	Amount      money.Money
	Type        EntryType
	Description string
	IsVerified  bool
	CreatedAt   time.Time
}

// LedgerRepository is append-only on purpose: no update or delete methods.
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	RecentByUser(ctx context.Context, userID user.ID, limit int) ([]*LedgerEntry, error)
	// SumVerifiedPayouts totals verified payout entries for the user; that
	// sum is the landlord's running balance.
	SumVerifiedPayouts(ctx context.Context, userID user.ID, currency string) (money.Money, error)
}

type EntryParams struct {
	ID          EntryID
	InvoiceID   InvoiceID
	UserID      user.ID
	Amount      money.Money
	Type        EntryType
	Description string
	IsVerified  bool
	CreatedAt   time.Time
}

func NewLedgerEntry(params EntryParams) (*LedgerEntry, error) {
	if params.UserID == "" {
		return nil, ErrEntryUserRequired
	}
	switch params.Type {
	case EntryPayment, EntryPayout, EntryFee, EntryRefund:
	default:
		return nil, ErrEntryType
	}
	return &LedgerEntry{
		ID:          params.ID,
		InvoiceID:   params.InvoiceID,
		UserID:      params.UserID,
		Amount:      params.Amount,
		Type:        params.Type,
		Description: params.Description,
		IsVerified:  params.IsVerified,
		CreatedAt:   params.CreatedAt.UTC(),
	}, nil
}
