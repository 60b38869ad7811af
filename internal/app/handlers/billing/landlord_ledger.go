package billing

import (
	"context"
	"time"

	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/queries"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainuser "rentdesk/internal/domain/user"
)

const landlordLedgerKey = "billing.landlord_ledger"

// recentEntriesLimit caps the transaction list returned with the balance.
const recentEntriesLimit = 10

type LandlordLedgerQuery struct {
	ActorID   string
	ActorRole string
	Currency  string
}

func (q LandlordLedgerQuery) Key() string { return landlordLedgerKey }

type LedgerEntryView struct {
	EntryID    string    `json:"entry_id"`
	InvoiceID  string    `json:"invoice_id,omitempty"`
	Amount     string    `json:"amount"`
	Type       string    `json:"type"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type LandlordLedgerResult struct {
	Balance            string            `json:"balance"`
	RecentTransactions []LedgerEntryView `json:"recent_transactions"`
}

// LandlordLedgerHandler reports a landlord's running balance: the sum of
// verified payout entries. Unverified rows and other entry types show up in
// the recent list but never in the balance.
type LandlordLedgerHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *LandlordLedgerHandler) Handle(ctx context.Context, q LandlordLedgerQuery) (*LandlordLedgerResult, error) {
	if domainuser.Role(q.ActorRole) != domainuser.RoleLandlord {
		return nil, domainbilling.ErrForbidden
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	owner := domainuser.ID(q.ActorID)
	balance, err := unit.Ledger().SumVerifiedPayouts(ctx, owner, q.Currency)
	if err != nil {
		return nil, err
	}
	recent, err := unit.Ledger().RecentByUser(ctx, owner, recentEntriesLimit)
	if err != nil {
		return nil, err
	}

	views := make([]LedgerEntryView, 0, len(recent))
	for _, e := range recent {
		views = append(views, LedgerEntryView{
			EntryID:    string(e.ID),
			InvoiceID:  string(e.InvoiceID),
			Amount:     e.Amount.String(),
			Type:       string(e.Type),
			IsVerified: e.IsVerified,
			CreatedAt:  e.CreatedAt,
		})
	}
	return &LandlordLedgerResult{Balance: balance.String(), RecentTransactions: views}, nil
}

var _ queries.Handler[LandlordLedgerQuery, *LandlordLedgerResult] = (*LandlordLedgerHandler)(nil)
