package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/policies"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	"rentdesk/internal/infra/storage/s3"
)

var ErrRendererNotConfigured = errors.New("render: uploader not configured")

// InvoiceRenderer produces a downloadable statement for an issued invoice
// and stores it in the object bucket.
type InvoiceRenderer struct {
	UoWFactory uow.UoWFactory
	Uploader   s3.Uploader
}

func (r InvoiceRenderer) RenderInvoice(ctx context.Context, invoiceID domainbilling.InvoiceID) (string, error) {
	if r.Uploader == nil {
		return "", ErrRendererNotConfigured
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, r.UoWFactory)
	if err != nil {
		return "", err
	}
	defer cleanup()

	inv, err := unit.Invoices().ByID(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", inv.ID)
	fmt.Fprintf(&b, "Booking:   %s\n", inv.BookingID)
	fmt.Fprintf(&b, "Tenant:    %s\n", inv.TenantID)
	fmt.Fprintf(&b, "Landlord:  %s\n", inv.OwnerID)
	fmt.Fprintf(&b, "Amount:    %s\n", inv.Amount.String())
	fmt.Fprintf(&b, "Issued:    %s\n", inv.IssueDate.Format(time.RFC3339))
	fmt.Fprintf(&b, "Due:       %s\n", inv.DueDate.Format(time.RFC3339))
	fmt.Fprintf(&b, "Status:    %s\n", inv.Status)

	key := fmt.Sprintf("invoices/%s.txt", inv.ID)
	return r.Uploader.Upload(ctx, key, strings.NewReader(b.String()), "text/plain; charset=utf-8")
}

var _ policies.RendererPort = InvoiceRenderer{}
