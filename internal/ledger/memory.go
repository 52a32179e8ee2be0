package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps the ledger in memory.
type MemoryStore struct {
	mu        sync.Mutex
	invoices  map[int64]*Invoice
	payments  map[int64]*Payment
	journals  map[int64]string
	invoiceID int64
	paymentID int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices: make(map[int64]*Invoice),
		payments: make(map[int64]*Payment),
		journals: make(map[int64]string),
	}
}

// AddJournal registers a journal name for payment listings.
func (m *MemoryStore) AddJournal(id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journals[id] = name
}

func (m *MemoryStore) InsertInvoice(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoiceID++
	inv.ID = m.invoiceID
	inv.Name = InvoiceName(inv.ID, inv.CreatedAt)
	m.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (m *MemoryStore) GetInvoice(_ context.Context, id int64) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrInvoiceNotFound)
	}
	return cloneInvoice(inv), nil
}

func (m *MemoryStore) UpdateInvoice(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; !ok {
		return fmt.Errorf("invoice %d: %w", inv.ID, ErrInvoiceNotFound)
	}
	m.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (m *MemoryStore) ListInvoices(_ context.Context, partnerID int64, limit int) ([]*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if partnerID != 0 && inv.PartnerID != partnerID {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) InsertPayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[p.InvoiceID]; !ok {
		return fmt.Errorf("invoice %d: %w", p.InvoiceID, ErrInvoiceNotFound)
	}
	m.paymentID++
	p.ID = m.paymentID
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MemoryStore) PostPayment(_ context.Context, paymentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment %d not found", paymentID)
	}
	if p.State == PaymentPosted {
		return nil
	}
	inv := m.invoices[p.InvoiceID]
	if err := ApplyPayment(inv, p.Amount); err != nil {
		return err
	}
	p.State = PaymentPosted
	return nil
}

func (m *MemoryStore) PaymentsFor(_ context.Context, ids []int64, postedOnly bool) (map[int64][]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[int64][]Payment)
	for _, p := range m.payments {
		if !wanted[p.InvoiceID] || (postedOnly && p.State != PaymentPosted) {
			continue
		}
		cp := *p
		if p.JournalID != nil {
			if name, ok := m.journals[*p.JournalID]; ok {
				cp.Journal = &name
			}
		}
		out[p.InvoiceID] = append(out[p.InvoiceID], cp)
	}
	for id := range out {
		list := out[id]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return out, nil
}

func cloneInvoice(inv *Invoice) *Invoice {
	cp := *inv
	cp.Lines = append([]Line(nil), inv.Lines...)
	cp.Payments = nil
	return &cp
}
