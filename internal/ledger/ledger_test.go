package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

var actor = model.User{ID: "u1", Name: "Accountant"}

func newService(t *testing.T, version string) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	lookup, err := NewPaymentLookup(version, store)
	require.NoError(t, err)
	svc := NewService(store, lookup)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func qty(v float64) *float64 { return &v }

func TestCreateComputesTotalsAndName(t *testing.T) {
	svc, _ := newService(t, "")
	inv, err := svc.Create(context.Background(), actor, InvoiceInput{
		PartnerID:   7,
		InvoiceDate: "2024-02-28",
		Lines: []LineInput{
			{Name: "Consulting", Quantity: qty(3), PriceUnit: 100.5},
			{Name: "Setup", PriceUnit: 49.99},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/2024/00001", inv.Name)
	assert.Equal(t, MoveOutInvoice, inv.MoveType)
	assert.Equal(t, StateDraft, inv.State)
	assert.InDelta(t, 351.49, inv.AmountTotal, 0.001)
	assert.Equal(t, inv.AmountTotal, inv.AmountResidual)
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, 1.0, inv.Lines[1].Quantity)
	require.NotNil(t, inv.InvoiceDate)
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newService(t, "")
	ctx := context.Background()
	cases := map[string]InvoiceInput{
		"missing partner": {},
		"bad move type":   {PartnerID: 1, MoveType: "out_refund"},
		"bad date":        {PartnerID: 1, InvoiceDate: "28/02/2024"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, actor, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUpdateAndPost(t *testing.T) {
	svc, _ := newService(t, "")
	ctx := context.Background()
	inv, err := svc.Create(ctx, actor, InvoiceInput{PartnerID: 1, Lines: []LineInput{{Name: "x", PriceUnit: 10}}})
	require.NoError(t, err)

	got, err := svc.Update(ctx, actor, InvoiceUpdate{ID: inv.ID, PartnerID: 2, State: StatePosted})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.PartnerID)
	assert.Equal(t, StatePosted, got.State)

	_, err = svc.Update(ctx, actor, InvoiceUpdate{ID: inv.ID, PartnerID: 3})
	assert.ErrorIs(t, err, ErrInvalidInput, "posted invoices are not editable")

	_, err = svc.Update(ctx, actor, InvoiceUpdate{ID: 999})
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestRegisterPaymentSettlesResidual(t *testing.T) {
	svc, store := newService(t, "")
	ctx := context.Background()
	inv, err := svc.Create(ctx, actor, InvoiceInput{PartnerID: 1, Lines: []LineInput{{Name: "x", PriceUnit: 100}}})
	require.NoError(t, err)
	_, err = svc.Update(ctx, actor, InvoiceUpdate{ID: inv.ID, State: StatePosted})
	require.NoError(t, err)

	p, err := svc.RegisterPayment(ctx, actor, PaymentInput{InvoiceID: inv.ID, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, PaymentInbound, p.PaymentType)
	assert.Equal(t, PaymentPosted, p.State)

	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60, got.AmountResidual, 0.001)
	assert.Equal(t, StatePosted, got.State)

	// No amount pays what is left.
	p, err = svc.RegisterPayment(ctx, actor, PaymentInput{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.InDelta(t, 60, p.Amount, 0.001)
	got, err = store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePaid, got.State)

	_, err = svc.RegisterPayment(ctx, actor, PaymentInput{InvoiceID: inv.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterPaymentOnDraftStaysDraft(t *testing.T) {
	svc, _ := newService(t, "")
	ctx := context.Background()
	inv, err := svc.Create(ctx, actor, InvoiceInput{MoveType: MoveInInvoice, PartnerID: 1, Lines: []LineInput{{Name: "x", PriceUnit: 5}}})
	require.NoError(t, err)

	p, err := svc.RegisterPayment(ctx, actor, PaymentInput{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Equal(t, PaymentOutbound, p.PaymentType)
	assert.Equal(t, PaymentDraft, p.State)
}

func TestListPaymentLookupVersions(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		version string
		want    int
	}{
		{LookupLinked, 2},
		{LookupReconciled, 1},
	} {
		t.Run(tc.version, func(t *testing.T) {
			svc, store := newService(t, tc.version)
			store.AddJournal(3, "Bank")
			journal := int64(3)

			posted, err := svc.Create(ctx, actor, InvoiceInput{PartnerID: 1, Lines: []LineInput{{Name: "a", PriceUnit: 10}}})
			require.NoError(t, err)
			_, err = svc.Update(ctx, actor, InvoiceUpdate{ID: posted.ID, State: StatePosted})
			require.NoError(t, err)
			_, err = svc.RegisterPayment(ctx, actor, PaymentInput{InvoiceID: posted.ID, Amount: 4, JournalID: &journal})
			require.NoError(t, err)

			draft, err := svc.Create(ctx, actor, InvoiceInput{PartnerID: 1, Lines: []LineInput{{Name: "b", PriceUnit: 10}}})
			require.NoError(t, err)
			_, err = svc.RegisterPayment(ctx, actor, PaymentInput{InvoiceID: draft.ID})
			require.NoError(t, err)

			_, err = svc.Create(ctx, actor, InvoiceInput{PartnerID: 2})
			require.NoError(t, err)

			invoices, err := svc.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, invoices, 2)
			assert.Equal(t, draft.ID, invoices[0].ID, "newest first")

			count := 0
			for _, inv := range invoices {
				count += len(inv.Payments)
			}
			assert.Equal(t, tc.want, count)
			require.Len(t, invoices[1].Payments, 1)
			require.NotNil(t, invoices[1].Payments[0].Journal)
			assert.Equal(t, "Bank", *invoices[1].Payments[0].Journal)
		})
	}
}

func TestNewPaymentLookupRejectsUnknown(t *testing.T) {
	_, err := NewPaymentLookup("introspect", NewMemoryStore())
	assert.Error(t, err)
}
