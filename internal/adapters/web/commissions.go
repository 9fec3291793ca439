package web

import (
	"net/http"

	"agency-ledger/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiListRules handles GET /api/commission-rules?agency_id=.
func (h *Handler) apiListRules(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := optionalIntQuery(w, r, "agency_id")
	if !ok {
		return
	}
	rules, err := h.svc.ListRules(r.Context(), agencyID)
	h.respond(w, r, rules, err)
}

func (h *Handler) apiCreateRule(w http.ResponseWriter, r *http.Request) {
	var req app.CreateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)
	rule, err := h.svc.CreateRule(r.Context(), req)
	h.respond(w, r, rule, err)
}

func (h *Handler) apiUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RuleID = id
	req.Actor = actor(r)
	rule, err := h.svc.UpdateRule(r.Context(), req)
	h.respond(w, r, rule, err)
}

func (h *Handler) apiDeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	rule, err := h.svc.DeactivateRule(r.Context(), id, actor(r))
	h.respond(w, r, rule, err)
}

func (h *Handler) apiCalculateCommission(w http.ResponseWriter, r *http.Request) {
	var req app.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CalculateCommission(r.Context(), req)
	h.respond(w, r, c, err)
}

// apiListCommissions handles GET /api/commissions?agency_id=&status=.
func (h *Handler) apiListCommissions(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := optionalIntQuery(w, r, "agency_id")
	if !ok {
		return
	}
	list, err := h.svc.ListCommissions(r.Context(), agencyID, r.URL.Query().Get("status"))
	h.respond(w, r, list, err)
}

func (h *Handler) apiRecordCommission(w http.ResponseWriter, r *http.Request) {
	var req app.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.RecordCommission(r.Context(), req)
	h.respond(w, r, c, err)
}

func (h *Handler) apiGetCommission(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetCommission(r.Context(), id)
	h.respond(w, r, c, err)
}

func (h *Handler) apiChangeCommissionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.ChangeCommissionStatus(r.Context(), id, req.Status)
	h.respond(w, r, c, err)
}

func (h *Handler) apiRecordBooking(w http.ResponseWriter, r *http.Request) {
	var req app.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.RecordBooking(r.Context(), req)
	h.respond(w, r, b, err)
}

func (h *Handler) apiBookingStatusChanged(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.BookingStatusChanged(r.Context(), chi.URLParam(r, "ref"), req.Status)
	h.respond(w, r, b, err)
}
