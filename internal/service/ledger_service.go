package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/brokewise/internal/auth"
	"github.com/mmynk/brokewise/internal/calculator"
	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/fx"
	"github.com/mmynk/brokewise/internal/metrics"
	"github.com/mmynk/brokewise/internal/models"
	"github.com/mmynk/brokewise/internal/storage"
	"github.com/mmynk/brokewise/pkg/api"
	"github.com/mmynk/brokewise/pkg/api/apiconnect"
)

// Ensure LedgerService implements the generated handler interface
var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store       storage.Store
	rates       *fx.Gateway
	validator   *calculator.Validator
	tokens      *auth.JWTManager
	metrics     *metrics.Metrics
	validate    *validator.Validate
	defaultBase currency.Code
	now         func() time.Time
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithTokens requires edit tokens issued by m for mutations.
func WithTokens(m *auth.JWTManager) Option {
	return func(s *LedgerService) { s.tokens = m }
}

// WithMetrics records rejections and settlements on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithDefaultBase sets the base currency used when a request names none.
func WithDefaultBase(c currency.Code) Option {
	return func(s *LedgerService) { s.defaultBase = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// NewLedgerService creates a new LedgerService with the given storage backend
// and rate gateway.
func NewLedgerService(store storage.Store, rates *fx.Gateway, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:       store,
		rates:       rates,
		validate:    newValidator(),
		defaultBase: currency.USD,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = calculator.NewValidator(rates, calculator.WithNow(s.now))
	return s
}

// Tokens returns the edit token manager, or nil when edits are open.
func (s *LedgerService) Tokens() *auth.JWTManager {
	return s.tokens
}

// CreateGroup creates a new group with an initial set of participants.
func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received", "participants_count", len(req.Msg.Participants))
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	var ledger models.Ledger
	for _, name := range req.Msg.Participants {
		var err error
		if ledger, err = ledger.AddParticipant(name); err != nil {
			return nil, connectError(err)
		}
	}

	now := s.now().Unix()
	group := &models.Group{Ledger: ledger, CreatedAt: now, LastAccessedAt: now}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := &api.CreateGroupResponse{Group: toAPIGroup(group)}
	if s.tokens != nil {
		token, err := s.tokens.Generate(group.ID)
		if err != nil {
			slog.Error("Failed to issue edit token", "group_id", group.ID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		resp.EditToken = token
	}

	slog.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(resp), nil
}

// GetLedger retrieves a group with its participants and expenses.
func (s *LedgerService) GetLedger(ctx context.Context, req *connect.Request[api.GetLedgerRequest]) (*connect.Response[api.GetLedgerResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetLedgerResponse{Group: toAPIGroup(group)}), nil
}

// AddParticipant appends a participant to a group.
func (s *LedgerService) AddParticipant(ctx context.Context, req *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.AddParticipantResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.update(ctx, req.Msg.GroupID, func(l models.Ledger) (models.Ledger, error) {
		return l.AddParticipant(req.Msg.Name)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Participant added", "group_id", group.ID, "participants_count", len(group.Participants))
	return connect.NewResponse(&api.AddParticipantResponse{Group: group}), nil
}

// RemoveParticipant removes a participant no expense refers to.
func (s *LedgerService) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.update(ctx, req.Msg.GroupID, func(l models.Ledger) (models.Ledger, error) {
		return l.RemoveParticipant(req.Msg.Name)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Participant removed", "group_id", group.ID, "participants_count", len(group.Participants))
	return connect.NewResponse(&api.RemoveParticipantResponse{Group: group}), nil
}

// AddExpense validates an expense and appends it to a group.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	adm, err := s.validator.Validate(ctx, toExpenseDraft(req.Msg.Expense))
	if err != nil {
		return nil, s.rejected(err)
	}

	group, err := s.update(ctx, req.Msg.GroupID, func(l models.Ledger) (models.Ledger, error) {
		return l.AddExpense(adm.Expense)
	})
	if err != nil {
		return nil, err
	}

	resp := &api.AddExpenseResponse{
		Expense:  toAPIExpense(adm.Expense),
		Group:    group,
		Degraded: adm.Degraded,
	}
	if adm.Degraded {
		resp.Warnings = []string{"exchange rates unavailable; the expense was balanced at 1:1"}
	}
	slog.Info("Expense added", "group_id", group.ID, "expense_id", adm.Expense.ID, "degraded", adm.Degraded)
	return connect.NewResponse(resp), nil
}

// DeleteExpense removes an expense from a group.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := s.update(ctx, req.Msg.GroupID, func(l models.Ledger) (models.Ledger, error) {
		return l.RemoveExpense(req.Msg.ExpenseID)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Expense deleted", "group_id", group.ID, "expense_id", req.Msg.ExpenseID)
	return connect.NewResponse(&api.DeleteExpenseResponse{Group: group}), nil
}

// CalculateGroup computes balances and transfers for a stored group.
func (s *LedgerService) CalculateGroup(ctx context.Context, req *connect.Request[api.CalculateGroupRequest]) (*connect.Response[api.CalculateResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}
	base, err := s.baseCurrency(req.Msg.BaseCurrency)
	if err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	resp, err := s.settle(ctx, group.Ledger, base)
	if err != nil {
		slog.Error("CalculateGroup failed", "group_id", group.ID, "error", err)
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Calculate computes balances and transfers for a ledger sent inline.
// Every expense goes through the same validation as AddExpense.
func (s *LedgerService) Calculate(ctx context.Context, req *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}
	base, err := s.baseCurrency(req.Msg.BaseCurrency)
	if err != nil {
		return nil, err
	}

	var ledger models.Ledger
	for _, name := range req.Msg.Participants {
		if ledger, err = ledger.AddParticipant(name); err != nil {
			return nil, connectError(err)
		}
	}
	for i, in := range req.Msg.Expenses {
		adm, err := s.validator.Validate(ctx, toExpenseDraft(in))
		if err != nil {
			return nil, s.rejected(fmt.Errorf("expense %d: %w", i, err))
		}
		if ledger, err = ledger.AddExpense(adm.Expense); err != nil {
			return nil, connectError(fmt.Errorf("expense %d: %w", i, err))
		}
	}

	resp, err := s.settle(ctx, ledger, base)
	if err != nil {
		slog.Error("Calculate failed", "error", err)
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// SplitEvenly divides the payments of an expense evenly among people.
func (s *LedgerService) SplitEvenly(ctx context.Context, req *connect.Request[api.SplitEvenlyRequest]) (*connect.Response[api.SplitEvenlyResponse], error) {
	if err := s.checkRequest(req.Msg); err != nil {
		return nil, err
	}

	obligations, degraded, err := calculator.SplitPayments(ctx, s.rates,
		req.Msg.DisplayCurrency, toDrafts(req.Msg.Payments), req.Msg.People)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&api.SplitEvenlyResponse{
		Obligations: fromDrafts(obligations),
		Degraded:    degraded,
	}), nil
}

// GetExchangeRate returns the current rate between two currencies.
func (s *LedgerService) GetExchangeRate(ctx context.Context, req *connect.Request[api.GetExchangeRateRequest]) (*connect.Response[api.GetExchangeRateResponse], error) {
	resp, err := s.exchangeRate(ctx, req.Msg.From, req.Msg.To)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) exchangeRate(ctx context.Context, fromCode, toCode string) (*api.GetExchangeRateResponse, error) {
	from, err := currency.Parse(fromCode)
	if err != nil {
		return nil, connectError(err)
	}
	to, err := currency.Parse(toCode)
	if err != nil {
		return nil, connectError(err)
	}

	r, err := s.rates.Rate(ctx, from, to)
	if err != nil {
		return nil, connectError(err)
	}
	return &api.GetExchangeRateResponse{
		From:      string(r.From),
		To:        string(r.To),
		Rate:      r.Value.String(),
		Degraded:  r.Degraded,
		Source:    r.Source,
		Timestamp: r.Timestamp,
	}, nil
}

func (s *LedgerService) baseCurrency(code string) (currency.Code, error) {
	if code == "" {
		return s.defaultBase, nil
	}
	base, err := currency.Parse(code)
	if err != nil {
		return "", connectError(err)
	}
	return base, nil
}

// loadGroup fetches a group and records the access for retention.
func (s *LedgerService) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Warn("GetGroup failed", "group_id", groupID, "error", err)
		return nil, connectError(err)
	}

	now := s.now()
	if err := s.store.TouchGroup(ctx, groupID, now); err != nil {
		slog.Warn("Failed to record group access", "group_id", groupID, "error", err)
	} else {
		group.LastAccessedAt = now.Unix()
	}
	return group, nil
}

// update applies fn to a group's ledger and returns the updated group.
func (s *LedgerService) update(ctx context.Context, groupID string, fn func(models.Ledger) (models.Ledger, error)) (*api.Group, error) {
	if _, err := s.store.UpdateLedger(ctx, groupID, fn); err != nil {
		slog.Warn("UpdateLedger failed", "group_id", groupID, "error", err)
		return nil, connectError(err)
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, connectError(err)
	}
	return toAPIGroup(group), nil
}

func (s *LedgerService) rejected(err error) error {
	kind := calculator.KindOf(err)
	if kind != "" {
		s.metrics.ExpenseRejected(string(kind))
	}
	return connectError(err)
}

func (s *LedgerService) settle(ctx context.Context, ledger models.Ledger, base currency.Code) (*api.CalculateResponse, error) {
	start := time.Now()
	summary, err := calculator.Aggregate(ctx, s.rates, ledger, base)
	if err != nil {
		return nil, connectError(err)
	}
	summary.Balances = calculator.RoundBalances(summary.Balances)
	transfers := calculator.Settle(summary.Balances, base)
	s.metrics.SettlementComputed(time.Since(start))

	if summary.Degraded {
		slog.Warn("Settlement computed with fallback rates", "base", base, "warnings", summary.Warnings)
	}
	return toCalculateResponse(summary, transfers), nil
}
