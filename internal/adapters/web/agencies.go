package web

import (
	"net/http"

	"agency-ledger/internal/app"
)

// apiListAgencies handles GET /api/agencies?status=.
func (h *Handler) apiListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.svc.ListAgencies(r.Context(), r.URL.Query().Get("status"))
	h.respond(w, r, agencies, err)
}

func (h *Handler) apiCreateAgency(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAgencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)
	agency, err := h.svc.CreateAgency(r.Context(), req)
	h.respond(w, r, agency, err)
}

func (h *Handler) apiGetAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	agency, err := h.svc.GetAgency(r.Context(), id)
	h.respond(w, r, agency, err)
}

func (h *Handler) apiUpdateAgencyTerms(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateAgencyTermsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AgencyID = id
	req.Actor = actor(r)
	agency, err := h.svc.UpdateAgencyTerms(r.Context(), req)
	h.respond(w, r, agency, err)
}

// apiChangeAgencyStatus handles POST /api/agencies/{id}/status with
// {"status": "active" | "suspended" | "inactive" | "deleted"}.
func (h *Handler) apiChangeAgencyStatus(w http.ResponseWriter, r *http.Request) {
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
	agency, err := h.svc.ChangeAgencyStatus(r.Context(), id, req.Status, actor(r))
	h.respond(w, r, agency, err)
}

func (h *Handler) apiListAgencyUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	users, err := h.svc.ListAgencyUsers(r.Context(), id)
	h.respond(w, r, users, err)
}

func (h *Handler) apiAddAgencyUser(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.AddAgencyUser(r.Context(), id, req.Username, req.Email)
	h.respond(w, r, user, err)
}
