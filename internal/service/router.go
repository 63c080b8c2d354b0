package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/middleware"
	"github.com/mmynk/brokewise/pkg/api"
	"github.com/mmynk/brokewise/pkg/api/apiconnect"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string

	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// NewRouter mounts the Connect service and the REST endpoints on one router.
func NewRouter(svc *LedgerService, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		middleware.RequireGroupToken(svc.Tokens(), apiconnect.MutatingProcedures...),
	)
	path, handler := apiconnect.NewLedgerServiceHandler(svc, interceptors)
	r.Mount(path, handler)

	r.Get("/healthz", svc.handleHealth)
	r.Get("/api/currencies", handleCurrencies)
	r.Get("/api/exchange-rate", svc.handleExchangeRate)
	r.Get("/api/g/{groupID}/export", svc.handleExport)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	return r
}

func (s *LedgerService) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type currencyDocument struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// handleCurrencies lists the accepted currency codes in display order.
func handleCurrencies(w http.ResponseWriter, r *http.Request) {
	supported := currency.Supported()
	out := make([]currencyDocument, len(supported))
	for i, c := range supported {
		out[i] = currencyDocument{Code: string(c.Code), Name: c.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *LedgerService) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("from and to are required")))
		return
	}

	resp, err := s.exchangeRate(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type exportDocument struct {
	GroupID      string        `json:"group_id"`
	ExportedAt   string        `json:"exported_at"`
	Participants []string      `json:"participants"`
	Expenses     []api.Expense `json:"expenses"`
}

func (s *LedgerService) handleExport(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(chi.URLParam(r, "groupID"))
	if err := s.validate.Var(groupID, "required,uuid"); err != nil {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid group ID")))
		return
	}

	group, err := s.loadGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := toAPIGroup(group)
	doc := exportDocument{
		GroupID:      group.ID,
		ExportedAt:   s.now().UTC().Format(time.RFC3339),
		Participants: out.Participants,
		Expenses:     out.Expenses,
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="brokewise-%s.json"`, group.ID))
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// writeError renders a connect error as a REST error body.
func writeError(w http.ResponseWriter, err error) {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		cerr = connect.NewError(connect.CodeInternal, err)
	}

	status := http.StatusInternalServerError
	switch cerr.Code() {
	case connect.CodeInvalidArgument:
		status = http.StatusBadRequest
	case connect.CodeNotFound:
		status = http.StatusNotFound
	}

	body := map[string]string{"error": cerr.Message()}
	if kind := cerr.Meta().Get(middleware.ErrorKindHeader); kind != "" {
		body["kind"] = kind
		w.Header().Set(middleware.ErrorKindHeader, kind)
	}
	writeJSON(w, status, body)
}
