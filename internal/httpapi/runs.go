package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/report"
	"github.com/datevrec/datevrec/internal/service/export"
	"github.com/datevrec/datevrec/internal/source"
)

type postRunRequest struct {
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Documents []source.Document `json:"documents"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type runResponse struct {
	Report  *report.Run     `json:"report"`
	Entries []entryResponse `json:"entries"`
}

type entryResponse struct {
	ID            uuid.UUID `json:"id"`
	Date          time.Time `json:"date"`
	Amount        string    `json:"amount"`
	Side          string    `json:"side"`
	Account       string    `json:"account"`
	ContraAccount string    `json:"contra_account"`
	TaxKey        string    `json:"tax_key,omitempty"`
	Text          string    `json:"text"`
	DocumentRef   string    `json:"document_ref"`
	Currency      string    `json:"currency"`
}

// collectSink keeps the ordered entries of a run for the response body.
type collectSink struct {
	entries []ledger.Entry
}

func (c *collectSink) Write(_ context.Context, entries []ledger.Entry) error {
	c.entries = append(c.entries, entries...)
	return nil
}

// postRun executes one run over the documents supplied in the request
// body. Nothing is persisted; the derived records come back in the
// response in posting order.
func (s *Server) postRun(w http.ResponseWriter, r *http.Request) {
	var req postRunRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "from must be before to"})
		return
	}

	sink := &collectSink{}
	svc := export.New(source.NewMemory(req.Documents...), s.asm, s.builder, s.pay, sink, s.log)
	run, err := svc.Run(r.Context(), req.From, req.To)
	if err != nil {
		toJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	s.setLatest(run)

	resp := runResponse{Report: run, Entries: make([]entryResponse, 0, len(sink.entries))}
	for _, e := range sink.entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, resp)
}

// latestRun returns the report of the most recent run, if any.
func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	run := s.lastRun()
	if run == nil {
		toJSON(w, http.StatusNotFound, errorResponse{Error: "no run yet"})
		return
	}
	toJSON(w, http.StatusOK, run)
}

func toEntryResponse(e ledger.Entry) entryResponse {
	n := e.Normalized()
	return entryResponse{
		ID:            n.ID,
		Date:          n.Date,
		Amount:        n.Amount.String(),
		Side:          string(n.Side),
		Account:       n.Account,
		ContraAccount: n.ContraAccount,
		TaxKey:        n.TaxKey,
		Text:          n.Text,
		DocumentRef:   n.DocumentRef,
		Currency:      n.Currency,
	}
}
