package web

import (
	"net/http"
	"strconv"
)

func (h *Handler) apiRecomputeRankings(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CalculateAgencyRankings(r.Context())
	h.respond(w, r, result, err)
}

// apiTopAgencies handles GET /api/rankings/top?limit=10.
func (h *Handler) apiTopAgencies(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "invalid limit: "+raw, "BadRequest", http.StatusBadRequest)
			return
		}
		limit = n
	}
	result, err := h.svc.GetTopPerformingAgencies(r.Context(), limit)
	h.respond(w, r, result, err)
}

func (h *Handler) apiRankingReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetAgencyRankingReport(r.Context())
	h.respond(w, r, report, err)
}

func (h *Handler) apiTrialBalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetTrialBalance(r.Context())
	h.respond(w, r, result, err)
}

// apiBalanceSheet handles GET /api/reports/balance-sheet?as_of=YYYY-MM-DD.
func (h *Handler) apiBalanceSheet(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetBalanceSheet(r.Context(), r.URL.Query().Get("as_of"))
	h.respond(w, r, report, err)
}

// apiIncomeStatement handles GET /api/reports/income-statement?start=&end=.
func (h *Handler) apiIncomeStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.GetIncomeStatement(r.Context(), q.Get("start"), q.Get("end"))
	h.respond(w, r, report, err)
}

// apiReceivables handles GET /api/reports/receivables?as_of=YYYY-MM-DD.
func (h *Handler) apiReceivables(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetAccountsReceivable(r.Context(), r.URL.Query().Get("as_of"))
	h.respond(w, r, report, err)
}
