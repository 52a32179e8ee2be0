package ledger

import (
	"context"
	"fmt"
)

// Payment lookup versions.
const (
	LookupLinked     = "linked"
	LookupReconciled = "reconciled"
)

// PaymentLookup decides which payments belong to an invoice listing.
type PaymentLookup interface {
	Payments(ctx context.Context, invoiceIDs []int64) (map[int64][]Payment, error)
}

// LinkedPayments returns every payment registered on the invoice.
type LinkedPayments struct {
	Store Store
}

func (l LinkedPayments) Payments(ctx context.Context, ids []int64) (map[int64][]Payment, error) {
	return l.Store.PaymentsFor(ctx, ids, false)
}

// ReconciledPayments returns only payments that were posted against the
// invoice.
type ReconciledPayments struct {
	Store Store
}

func (r ReconciledPayments) Payments(ctx context.Context, ids []int64) (map[int64][]Payment, error) {
	return r.Store.PaymentsFor(ctx, ids, true)
}

// NewPaymentLookup returns the lookup for version; empty means linked.
func NewPaymentLookup(version string, store Store) (PaymentLookup, error) {
	switch version {
	case "", LookupLinked:
		return LinkedPayments{Store: store}, nil
	case LookupReconciled:
		return ReconciledPayments{Store: store}, nil
	default:
		return nil, fmt.Errorf("unknown payment lookup %q", version)
	}
}
