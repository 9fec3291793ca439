package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"agency-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	log       *zap.Logger
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log *zap.Logger, allowedOrigins, jwtSecret string) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{svc: svc, log: log, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	// ── Protected API routes (401 if unauthenticated) ─────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Ledger
		r.Get("/api/accounts", h.apiListAccounts)
		r.Post("/api/accounts", h.apiCreateAccount)
		r.Get("/api/accounts/{code}", h.apiGetAccount)
		r.Patch("/api/accounts/{code}", h.apiRenameAccount)
		r.Post("/api/accounts/{code}/deactivate", h.apiDeactivateAccount)
		r.Get("/api/accounts/{code}/statement", h.apiAccountStatement)
		r.Post("/api/transactions", h.apiCreateTransaction)
		r.Get("/api/transactions/{id}", h.apiGetTransaction)
		r.Post("/api/transactions/{id}/post", h.apiPostTransaction)

		// Invoices
		r.Get("/api/invoices", h.apiListInvoices)
		r.Post("/api/invoices", h.apiCreateInvoice)
		r.Get("/api/invoices/{id}", h.apiGetInvoice)
		r.Post("/api/invoices/{id}/payments", h.apiRecordPayment)

		// Agencies
		r.Get("/api/agencies", h.apiListAgencies)
		r.Post("/api/agencies", h.apiCreateAgency)
		r.Get("/api/agencies/{id}", h.apiGetAgency)
		r.Patch("/api/agencies/{id}", h.apiUpdateAgencyTerms)
		r.Post("/api/agencies/{id}/status", h.apiChangeAgencyStatus)
		r.Get("/api/agencies/{id}/users", h.apiListAgencyUsers)
		r.Post("/api/agencies/{id}/users", h.apiAddAgencyUser)

		// Commissions
		r.Get("/api/commission-rules", h.apiListRules)
		r.Post("/api/commission-rules", h.apiCreateRule)
		r.Patch("/api/commission-rules/{id}", h.apiUpdateRule)
		r.Post("/api/commission-rules/{id}/deactivate", h.apiDeactivateRule)
		r.Post("/api/commissions/calculate", h.apiCalculateCommission)
		r.Get("/api/commissions", h.apiListCommissions)
		r.Post("/api/commissions", h.apiRecordCommission)
		r.Get("/api/commissions/{id}", h.apiGetCommission)
		r.Post("/api/commissions/{id}/status", h.apiChangeCommissionStatus)

		// Bookings (pushed by the booking subsystem)
		r.Post("/api/bookings", h.apiRecordBooking)
		r.Post("/api/bookings/{ref}/status", h.apiBookingStatusChanged)

		// Rankings
		r.Post("/api/rankings/recompute", h.apiRecomputeRankings)
		r.Get("/api/rankings/top", h.apiTopAgencies)
		r.Get("/api/rankings/report", h.apiRankingReport)

		// Reports
		r.Get("/api/reports/trial-balance", h.apiTrialBalance)
		r.Get("/api/reports/balance-sheet", h.apiBalanceSheet)
		r.Get("/api/reports/income-statement", h.apiIncomeStatement)
		r.Get("/api/reports/receivables", h.apiReceivables)
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, map[string]string{"status": "ok"}, nil)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "RequestTooLarge", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BadRequest", http.StatusBadRequest)
		return false
	}
	return true
}

// intParam reads a numeric URL parameter, writing a 400 on failure.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		writeError(w, r, "invalid "+name+": "+chi.URLParam(r, name), "BadRequest", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// optionalIntQuery reads an optional numeric query parameter.
func optionalIntQuery(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, "invalid "+name+": "+raw, "BadRequest", http.StatusBadRequest)
		return nil, false
	}
	return &v, true
}
