package policies

import (
	"context"

	"rentdesk/internal/domain/billing"
)

// RendererPort produces a downloadable document for an invoice and returns
// its URL. Rendering is decoupled from billing: an empty URL with an error
// means the document is missing, never that the invoice is wrong.
type RendererPort interface {
	RenderInvoice(ctx context.Context, invoiceID billing.InvoiceID) (string, error)
}
