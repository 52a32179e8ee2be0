package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the ledger in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const invoiceColumns = `id, name, move_type, partner_id, invoice_date, state, amount_total, amount_residual, created_by, created_at, updated_at`

func (s *PostgresStore) InsertInvoice(ctx context.Context, inv *Invoice) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (move_type, partner_id, invoice_date, state, amount_total, amount_residual, created_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id
		`, inv.MoveType, inv.PartnerID, inv.InvoiceDate, inv.State, inv.AmountTotal, inv.AmountResidual,
			inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt).Scan(&inv.ID)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		inv.Name = InvoiceName(inv.ID, inv.CreatedAt)
		if _, err := tx.Exec(ctx, `UPDATE invoices SET name=$2 WHERE id=$1`, inv.ID, inv.Name); err != nil {
			return fmt.Errorf("name invoice: %w", err)
		}
		for _, l := range inv.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO invoice_lines (invoice_id, name, product_id, quantity, price_unit)
				VALUES ($1,$2,$3,$4,$5)
			`, inv.ID, l.Name, l.ProductID, l.Quantity, l.PriceUnit)
			if err != nil {
				return fmt.Errorf("insert invoice line: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrInvoiceNotFound)
		}
		return nil, fmt.Errorf("select invoice: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT name, product_id, quantity, price_unit FROM invoice_lines WHERE invoice_id=$1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("select invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Name, &l.ProductID, &l.Quantity, &l.PriceUnit); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

func (s *PostgresStore) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices SET partner_id=$2, invoice_date=$3, state=$4, updated_at=$5 WHERE id=$1
	`, inv.ID, inv.PartnerID, inv.InvoiceDate, inv.State, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", inv.ID, ErrInvoiceNotFound)
	}
	return nil
}

func (s *PostgresStore) ListInvoices(ctx context.Context, partnerID int64, limit int) ([]*Invoice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE ($1 = 0 OR partner_id = $1)
		ORDER BY id DESC
		LIMIT $2
	`, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var out []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertPayment(ctx context.Context, p *Payment) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, payment_type, partner_id, amount, journal_id, payment_date, payment_method_id, state, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, p.InvoiceID, p.PaymentType, p.PartnerID, p.Amount, p.JournalID, p.PaymentDate,
		p.PaymentMethodID, p.State, p.CreatedBy, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) PostPayment(ctx context.Context, paymentID int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			invoiceID int64
			amount    float64
			state     string
		)
		err := tx.QueryRow(ctx, `SELECT invoice_id, amount, state FROM payments WHERE id=$1 FOR UPDATE`, paymentID).
			Scan(&invoiceID, &amount, &state)
		if err != nil {
			return fmt.Errorf("select payment: %w", err)
		}
		if state == PaymentPosted {
			return nil
		}
		inv, err := scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, invoiceID))
		if err != nil {
			return fmt.Errorf("lock invoice: %w", err)
		}
		if err := ApplyPayment(inv, amount); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE payments SET state=$2 WHERE id=$1`, paymentID, PaymentPosted); err != nil {
			return fmt.Errorf("post payment: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE invoices SET amount_residual=$2, state=$3, updated_at=NOW() WHERE id=$1`,
			inv.ID, inv.AmountResidual, inv.State)
		if err != nil {
			return fmt.Errorf("settle invoice: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) PaymentsFor(ctx context.Context, ids []int64, postedOnly bool) (map[int64][]Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.invoice_id, p.payment_type, p.partner_id, p.amount, p.journal_id, j.name,
		       p.payment_date, p.payment_method_id, p.state, p.created_by, p.created_at
		FROM payments p LEFT JOIN journals j ON j.id = p.journal_id
		WHERE p.invoice_id = ANY($1) AND (NOT $2 OR p.state = 'posted')
		ORDER BY p.id
	`, ids, postedOnly)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()
	out := make(map[int64][]Payment)
	for rows.Next() {
		var p Payment
		err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentType, &p.PartnerID, &p.Amount, &p.JournalID, &p.Journal,
			&p.PaymentDate, &p.PaymentMethodID, &p.State, &p.CreatedBy, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out[p.InvoiceID] = append(out[p.InvoiceID], p)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Name, &inv.MoveType, &inv.PartnerID, &inv.InvoiceDate, &inv.State,
		&inv.AmountTotal, &inv.AmountResidual, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
