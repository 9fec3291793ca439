package web

import (
	"net/http"

	"agency-ledger/internal/app"
)

// apiListInvoices handles GET /api/invoices?agency_id=&status=.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := optionalIntQuery(w, r, "agency_id")
	if !ok {
		return
	}
	invoices, err := h.svc.ListInvoices(r.Context(), agencyID, r.URL.Query().Get("status"))
	h.respond(w, r, invoices, err)
}

func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)
	invoice, err := h.svc.CreateInvoice(r.Context(), req)
	h.respond(w, r, invoice, err)
}

func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	invoice, err := h.svc.GetInvoice(r.Context(), id)
	h.respond(w, r, invoice, err)
}

func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req app.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.InvoiceID = id
	req.Actor = actor(r)
	receipt, err := h.svc.RecordPayment(r.Context(), req)
	h.respond(w, r, receipt, err)
}
