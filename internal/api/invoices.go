package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dharsanguruparan/staffdrop/internal/api/middleware"
	"github.com/dharsanguruparan/staffdrop/internal/ledger"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
)

const maxInvoiceBody = 4 << 20

type resultsResponse struct {
	Results []map[string]any `json:"results"`
}

type invoiceView struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	State       string        `json:"state"`
	AmountTotal float64       `json:"amount_total"`
	Payments    []paymentView `json:"payments"`
}

type paymentView struct {
	ID      int64   `json:"id"`
	Amount  float64 `json:"amount"`
	Journal *string `json:"journal"`
}

func (s *Server) handleCreateInvoices(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	eachItem(w, r, "create invoice", func(in ledger.InvoiceInput) (map[string]any, error) {
		inv, err := s.ledger.Create(r.Context(), user, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": inv.ID, "name": inv.Name}, nil
	})
}

func (s *Server) handleUpdateInvoices(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	eachItem(w, r, "update invoice", func(in ledger.InvoiceUpdate) (map[string]any, error) {
		inv, err := s.ledger.Update(r.Context(), user, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": inv.ID}, nil
	})
}

func (s *Server) handleRegisterPayments(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.User(r.Context())
	eachItem(w, r, "register payment", func(in ledger.PaymentInput) (map[string]any, error) {
		p, err := s.ledger.RegisterPayment(r.Context(), user, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"payment_id": p.ID}, nil
	})
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	partnerID, err := listPartner(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	invoices, err := s.ledger.List(r.Context(), partnerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list invoices", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]invoiceView, 0, len(invoices))
	for _, inv := range invoices {
		view := invoiceView{
			ID:          inv.ID,
			Name:        inv.Name,
			State:       inv.State,
			AmountTotal: inv.AmountTotal,
			Payments:    make([]paymentView, 0, len(inv.Payments)),
		}
		for _, p := range inv.Payments {
			view.Payments = append(view.Payments, paymentView{ID: p.ID, Amount: p.Amount, Journal: p.Journal})
		}
		out = append(out, view)
	}
	respondJSON(w, http.StatusOK, map[string]any{"invoices": out})
}

// listPartner reads partner_id from the query string or, for POST, the body.
func listPartner(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("partner_id")
	if raw == "" && r.Method == http.MethodPost {
		var body struct {
			PartnerID json.Number `json:"partner_id"`
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, maxInvoiceBody))
		if err != nil {
			return 0, fmt.Errorf("read body: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				return 0, errors.New("invalid JSON body")
			}
		}
		raw = body.PartnerID.String()
	}
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("partner_id must be an integer")
	}
	return id, nil
}

// eachItem decodes a body holding one item, a list of items, or either wrapped
// in {"data": ...}, and applies fn to every item. Item failures become
// {"error": ...} entries; only an unparseable body fails the request.
func eachItem[T any](w http.ResponseWriter, r *http.Request, op string, fn func(T) (map[string]any, error)) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInvoiceBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read body")
		return
	}
	items, err := splitItems(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log := logging.FromContext(r.Context())
	results := make([]map[string]any, 0, len(items))
	for _, raw := range items {
		var in T
		if err := json.Unmarshal(raw, &in); err != nil {
			results = append(results, map[string]any{"error": "invalid item: " + err.Error()})
			continue
		}
		res, err := fn(in)
		if err != nil {
			log.Warn(op+" failed", "error", err)
			results = append(results, map[string]any{"error": err.Error()})
			continue
		}
		results = append(results, res)
	}
	respondJSON(w, http.StatusOK, resultsResponse{Results: results})
}

func splitItems(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, errors.New("invalid JSON body")
		}
		return items, nil
	case '{':
		var wrapper struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, errors.New("invalid JSON body")
		}
		data := bytes.TrimSpace(wrapper.Data)
		if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
			if data[0] == '[' {
				return splitItems(data)
			}
			return []json.RawMessage{data}, nil
		}
		return []json.RawMessage{body}, nil
	default:
		return nil, errors.New("body must be a JSON object or array")
	}
}
