// Package ledger keeps customer and vendor invoices and the payments
// registered against them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// Invoice move types.
const (
	MoveOutInvoice = "out_invoice"
	MoveInInvoice  = "in_invoice"
)

// Invoice states.
const (
	StateDraft  = "draft"
	StatePosted = "posted"
	StatePaid   = "paid"
)

// Payment types and states.
const (
	PaymentInbound  = "inbound"
	PaymentOutbound = "outbound"

	PaymentDraft  = "draft"
	PaymentPosted = "posted"
)

// ListLimit caps a single listing.
const ListLimit = 500

const dateLayout = "2006-01-02"

var (
	// ErrInvoiceNotFound is returned for an unknown invoice id.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrNotPosted rejects posting a payment against a draft invoice.
	ErrNotPosted = errors.New("invoice is not posted")
	// ErrInvalidInput wraps every validation failure of a request item.
	ErrInvalidInput = errors.New("invalid input")
)

// Invoice is an accounting move with its lines.
type Invoice struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	MoveType       string     `json:"move_type"`
	PartnerID      int64      `json:"partner_id"`
	InvoiceDate    *time.Time `json:"invoice_date,omitempty"`
	State          string     `json:"state"`
	AmountTotal    float64    `json:"amount_total"`
	AmountResidual float64    `json:"amount_residual"`
	Lines          []Line     `json:"lines,omitempty"`
	Payments       []Payment  `json:"payments,omitempty"`
	CreatedBy      string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Line is one invoice line.
type Line struct {
	Name      string  `json:"name"`
	ProductID *int64  `json:"product_id,omitempty"`
	Quantity  float64 `json:"quantity"`
	PriceUnit float64 `json:"price_unit"`
}

// Payment is money registered against an invoice.
type Payment struct {
	ID              int64      `json:"id"`
	InvoiceID       int64      `json:"invoice_id"`
	PaymentType     string     `json:"payment_type"`
	PartnerID       int64      `json:"partner_id"`
	Amount          float64    `json:"amount"`
	JournalID       *int64     `json:"journal_id,omitempty"`
	Journal         *string    `json:"journal"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	PaymentMethodID *int64     `json:"payment_method_id,omitempty"`
	State           string     `json:"state"`
	CreatedBy       string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
}

// LineInput is a requested invoice line. Quantity defaults to 1.
type LineInput struct {
	Name      string   `json:"name"`
	ProductID *int64   `json:"product_id"`
	Quantity  *float64 `json:"quantity"`
	PriceUnit float64  `json:"price_unit"`
}

// InvoiceInput creates an invoice. MoveType defaults to out_invoice.
type InvoiceInput struct {
	MoveType    string      `json:"move_type"`
	PartnerID   int64       `json:"partner_id"`
	InvoiceDate string      `json:"invoice_date"`
	Lines       []LineInput `json:"lines"`
}

// InvoiceUpdate changes the fields that are set. State may only move a draft
// to posted.
type InvoiceUpdate struct {
	ID          int64  `json:"id"`
	PartnerID   int64  `json:"partner_id"`
	InvoiceDate string `json:"invoice_date"`
	State       string `json:"state"`
}

// PaymentInput registers a payment. A zero Amount pays the residual.
type PaymentInput struct {
	InvoiceID       int64   `json:"invoice_id"`
	Amount          float64 `json:"amount"`
	JournalID       *int64  `json:"journal_id"`
	PaymentDate     string  `json:"payment_date"`
	PaymentMethodID *int64  `json:"payment_method_id"`
}

// Store persists invoices and payments.
type Store interface {
	// InsertInvoice stores inv with its lines and assigns ID and Name.
	InsertInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	ListInvoices(ctx context.Context, partnerID int64, limit int) ([]*Invoice, error)
	// InsertPayment stores p as a draft and assigns its ID.
	InsertPayment(ctx context.Context, p *Payment) error
	// PostPayment posts a draft payment and settles it on its invoice
	// atomically, using ApplyPayment.
	PostPayment(ctx context.Context, paymentID int64) error
	// PaymentsFor returns payments per invoice id, only posted ones when
	// postedOnly is set.
	PaymentsFor(ctx context.Context, invoiceIDs []int64, postedOnly bool) (map[int64][]Payment, error)
}

// Service applies accounting rules on top of a Store.
type Service struct {
	store    Store
	payments PaymentLookup
	now      func() time.Time
}

// NewService constructs a Service. payments decides which payments a listing
// shows; see NewPaymentLookup.
func NewService(store Store, payments PaymentLookup) *Service {
	return &Service{store: store, payments: payments, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates in and stores a draft invoice.
func (s *Service) Create(ctx context.Context, actor model.User, in InvoiceInput) (*Invoice, error) {
	moveType := strings.TrimSpace(in.MoveType)
	if moveType == "" {
		moveType = MoveOutInvoice
	}
	if moveType != MoveOutInvoice && moveType != MoveInInvoice {
		return nil, fmt.Errorf("%w: unsupported move_type %q", ErrInvalidInput, moveType)
	}
	if in.PartnerID <= 0 {
		return nil, fmt.Errorf("%w: partner_id is required", ErrInvalidInput)
	}
	date, err := parseDate("invoice_date", in.InvoiceDate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &Invoice{
		MoveType:    moveType,
		PartnerID:   in.PartnerID,
		InvoiceDate: date,
		State:       StateDraft,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, l := range in.Lines {
		qty := 1.0
		if l.Quantity != nil {
			qty = *l.Quantity
		}
		inv.Lines = append(inv.Lines, Line{Name: l.Name, ProductID: l.ProductID, Quantity: qty, PriceUnit: l.PriceUnit})
		inv.AmountTotal += qty * l.PriceUnit
	}
	inv.AmountTotal = round2(inv.AmountTotal)
	inv.AmountResidual = inv.AmountTotal

	if err := s.store.InsertInvoice(ctx, inv); err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "invoice_id", inv.ID, "user_id", actor.ID).Info("invoice created", "name", inv.Name)
	return inv, nil
}

// Update writes the set fields of in. Partner and date are editable while the
// invoice is a draft.
func (s *Service) Update(ctx context.Context, actor model.User, in InvoiceUpdate) (*Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	changed := false
	if in.PartnerID != 0 || in.InvoiceDate != "" {
		if inv.State != StateDraft {
			return nil, fmt.Errorf("%w: invoice %s is %s", ErrInvalidInput, inv.Name, inv.State)
		}
		if in.PartnerID > 0 {
			inv.PartnerID = in.PartnerID
			changed = true
		}
		if in.InvoiceDate != "" {
			date, err := parseDate("invoice_date", in.InvoiceDate)
			if err != nil {
				return nil, err
			}
			inv.InvoiceDate = date
			changed = true
		}
	}
	switch in.State {
	case "", inv.State:
	case StatePosted:
		if inv.State != StateDraft {
			return nil, fmt.Errorf("%w: cannot post a %s invoice", ErrInvalidInput, inv.State)
		}
		inv.State = StatePosted
		if inv.AmountResidual <= 0 {
			inv.State = StatePaid
		}
		changed = true
	default:
		return nil, fmt.Errorf("%w: unsupported state %q", ErrInvalidInput, in.State)
	}
	if !changed {
		return inv, nil
	}
	inv.UpdatedAt = s.now()
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "invoice_id", inv.ID, "user_id", actor.ID).Info("invoice updated", "state", inv.State)
	return inv, nil
}

// RegisterPayment records a payment and tries to post it. A payment that
// cannot be posted yet stays a draft and is still returned.
func (s *Service) RegisterPayment(ctx context.Context, actor model.User, in PaymentInput) (*Payment, error) {
	inv, err := s.store.GetInvoice(ctx, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	amount := in.Amount
	if amount == 0 {
		amount = inv.AmountResidual
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: nothing to pay on %s", ErrInvalidInput, inv.Name)
	}
	date, err := parseDate("payment_date", in.PaymentDate)
	if err != nil {
		return nil, err
	}
	paymentType := PaymentOutbound
	if inv.MoveType == MoveOutInvoice {
		paymentType = PaymentInbound
	}
	p := &Payment{
		InvoiceID:       inv.ID,
		PaymentType:     paymentType,
		PartnerID:       inv.PartnerID,
		Amount:          round2(amount),
		JournalID:       in.JournalID,
		PaymentDate:     date,
		PaymentMethodID: in.PaymentMethodID,
		State:           PaymentDraft,
		CreatedBy:       actor.ID,
		CreatedAt:       s.now(),
	}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		return nil, err
	}
	log := logging.WithFields(ctx, "invoice_id", inv.ID, "payment_id", p.ID, "user_id", actor.ID)
	if err := s.store.PostPayment(ctx, p.ID); err != nil {
		log.Info("payment left in draft, post failed", "error", err)
		return p, nil
	}
	p.State = PaymentPosted
	log.Info("payment registered", "amount", p.Amount)
	return p, nil
}

// List returns up to ListLimit invoices, newest first, filtered by partner
// when partnerID is set. Payments are attached by the PaymentLookup.
func (s *Service) List(ctx context.Context, partnerID int64) ([]*Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx, partnerID, ListLimit)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return invoices, nil
	}
	ids := make([]int64, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	payments, err := s.payments.Payments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	for _, inv := range invoices {
		inv.Payments = payments[inv.ID]
	}
	return invoices, nil
}

// ApplyPayment settles amount on a posted invoice.
func ApplyPayment(inv *Invoice, amount float64) error {
	if inv.State == StateDraft {
		return fmt.Errorf("%s: %w", inv.Name, ErrNotPosted)
	}
	inv.AmountResidual = math.Max(0, round2(inv.AmountResidual-amount))
	if inv.AmountResidual == 0 {
		inv.State = StatePaid
	}
	return nil
}

// InvoiceName formats the sequence name of an invoice.
func InvoiceName(id int64, at time.Time) string {
	return fmt.Sprintf("INV/%d/%05d", at.Year(), id)
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return &t, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
