package web

import (
	"net/http"

	"agency-ledger/internal/app"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) apiListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	h.respond(w, r, accounts, err)
}

func (h *Handler) apiCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)
	account, err := h.svc.CreateAccount(r.Context(), req)
	h.respond(w, r, account, err)
}

func (h *Handler) apiGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.GetAccount(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, r, account, err)
}

func (h *Handler) apiRenameAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.svc.RenameAccount(r.Context(), chi.URLParam(r, "code"), req.Name, actor(r))
	h.respond(w, r, account, err)
}

func (h *Handler) apiDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.DeactivateAccount(r.Context(), chi.URLParam(r, "code"), actor(r))
	h.respond(w, r, account, err)
}

// apiAccountStatement handles GET /api/accounts/{code}/statement?from=&to=.
func (h *Handler) apiAccountStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lines, err := h.svc.GetAccountStatement(r.Context(), chi.URLParam(r, "code"), q.Get("from"), q.Get("to"))
	h.respond(w, r, lines, err)
}

func (h *Handler) apiCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req app.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Actor = actor(r)
	result, err := h.svc.CreateTransaction(r.Context(), req)
	h.respond(w, r, result, err)
}

func (h *Handler) apiGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetTransaction(r.Context(), id)
	h.respond(w, r, t, err)
}

func (h *Handler) apiPostTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.PostTransaction(r.Context(), id, actor(r))
	h.respond(w, r, t, err)
}
