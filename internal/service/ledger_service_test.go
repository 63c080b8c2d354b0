package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/auth"
	"github.com/mmynk/brokewise/internal/calculator"
	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/fx"
	"github.com/mmynk/brokewise/internal/metrics"
	"github.com/mmynk/brokewise/internal/middleware"
	"github.com/mmynk/brokewise/internal/storage/sqlite"
	"github.com/mmynk/brokewise/pkg/api"
	"github.com/mmynk/brokewise/pkg/api/apiconnect"
)

type testServer struct {
	client  apiconnect.LedgerServiceClient
	url     string
	rates   *fx.StaticProvider
	metrics *prometheus.Registry
}

type serverOption struct {
	tokens *auth.JWTManager
}

// setupTestServer creates a test server backed by a temporary SQLite database
// and a static rate table.
func setupTestServer(t *testing.T, opt serverOption) *testServer {
	t.Helper()

	// Create temp database
	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	rates := &fx.StaticProvider{
		Pivot: currency.USD,
		PerPivot: map[currency.Code]decimal.Decimal{
			currency.EUR: decimal.RequireFromString("0.92"),
			currency.JPY: decimal.RequireFromString("150"),
		},
		Source:    "test",
		Timestamp: 1700000000,
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	opts := []Option{WithMetrics(m)}
	if opt.tokens != nil {
		opts = append(opts, WithTokens(opt.tokens))
	}
	svc := NewLedgerService(store, fx.NewGateway(rates, fx.WithMetrics(m)), opts...)

	server := httptest.NewServer(NewRouter(svc, RouterConfig{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}))
	client := apiconnect.NewLedgerServiceClient(http.DefaultClient, server.URL)

	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})

	return &testServer{client: client, url: server.URL, rates: rates, metrics: reg}
}

func createGroup(t *testing.T, client apiconnect.LedgerServiceClient, participants ...string) *api.CreateGroupResponse {
	t.Helper()
	resp, err := client.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Participants: participants,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg
}

func dinner(payer string, amount string, code string, people ...string) api.ExpenseInput {
	in := api.ExpenseInput{
		Description:     "Dinner",
		DisplayCurrency: code,
		Payments:        []api.Entry{{Person: payer, Amount: amount, Currency: code}},
	}
	total := decimal.RequireFromString(amount)
	share := total.Div(decimal.NewFromInt(int64(len(people)))).Round(2)
	for i, p := range people {
		a := share
		if i == 0 {
			a = total.Sub(share.Mul(decimal.NewFromInt(int64(len(people) - 1))))
		}
		in.Obligations = append(in.Obligations, api.Entry{Person: p, Amount: a.String(), Currency: code})
	}
	return in
}

func errorKind(err error) string {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr.Meta().Get(middleware.ErrorKindHeader)
	}
	return ""
}

func TestCreateGroup(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	resp := createGroup(t, ts.client, "Alice", " Bob ", "Charlie")

	if resp.Group.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if len(resp.Group.Participants) != 3 || resp.Group.Participants[1] != "Bob" {
		t.Errorf("participants: expected [Alice Bob Charlie], got %v", resp.Group.Participants)
	}
	if resp.Group.CreatedAt == 0 {
		t.Error("expected non-zero CreatedAt")
	}
	if resp.EditToken != "" {
		t.Error("expected no edit token when tokens are disabled")
	}
}

func TestCreateGroup_DuplicateParticipant(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	_, err := ts.client.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Participants: []string{"Alice", "Alice"},
	}))
	if connect.CodeOf(err) != connect.CodeAlreadyExists {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
	if kind := errorKind(err); kind != "DuplicateParticipant" {
		t.Errorf("kind: expected DuplicateParticipant, got %q", kind)
	}
}

func TestGetLedger(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	created := createGroup(t, ts.client, "Diana", "Eve")

	resp, err := ts.client.GetLedger(context.Background(), connect.NewRequest(&api.GetLedgerRequest{
		GroupID: created.Group.ID,
	}))
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	if resp.Msg.Group.ID != created.Group.ID {
		t.Errorf("ID: expected %s, got %s", created.Group.ID, resp.Msg.Group.ID)
	}
	if len(resp.Msg.Group.Participants) != 2 {
		t.Errorf("participants: expected 2, got %d", len(resp.Msg.Group.Participants))
	}
}

func TestGetLedger_NotFound(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	_, err := ts.client.GetLedger(context.Background(), connect.NewRequest(&api.GetLedgerRequest{
		GroupID: "0f8fad5b-d9cb-469f-a165-70867728950e",
	}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	_, err = ts.client.GetLedger(context.Background(), connect.NewRequest(&api.GetLedgerRequest{
		GroupID: "not-a-uuid",
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for malformed ID, got %v", err)
	}
}

func TestParticipants(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()
	groupID := createGroup(t, ts.client, "Alice", "Bob").Group.ID

	added, err := ts.client.AddParticipant(ctx, connect.NewRequest(&api.AddParticipantRequest{
		GroupID: groupID, Name: "Charlie",
	}))
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if len(added.Msg.Group.Participants) != 3 {
		t.Errorf("participants: expected 3, got %v", added.Msg.Group.Participants)
	}

	_, err = ts.client.AddParticipant(ctx, connect.NewRequest(&api.AddParticipantRequest{
		GroupID: groupID, Name: "   ",
	}))
	if kind := errorKind(err); kind != "InvalidParticipant" {
		t.Errorf("blank name: expected InvalidParticipant, got %q (%v)", kind, err)
	}

	// Bob is referenced by an expense and cannot be removed.
	_, err = ts.client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID: groupID,
		Expense: dinner("Alice", "20", "USD", "Alice", "Bob"),
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	_, err = ts.client.RemoveParticipant(ctx, connect.NewRequest(&api.RemoveParticipantRequest{
		GroupID: groupID, Name: "Bob",
	}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition || errorKind(err) != "ParticipantInUse" {
		t.Errorf("expected FailedPrecondition/ParticipantInUse, got %v", err)
	}

	removed, err := ts.client.RemoveParticipant(ctx, connect.NewRequest(&api.RemoveParticipantRequest{
		GroupID: groupID, Name: " Charlie ",
	}))
	if err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if len(removed.Msg.Group.Participants) != 2 {
		t.Errorf("participants: expected 2, got %v", removed.Msg.Group.Participants)
	}
}

func TestAddExpense(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()
	groupID := createGroup(t, ts.client, "Alice", "Bob").Group.ID

	resp, err := ts.client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID: groupID,
		Expense: api.ExpenseInput{
			Description:     "Hotel",
			DisplayCurrency: "eur",
			Payments:        []api.Entry{{Person: "Alice", Amount: "100", Currency: "USD"}},
			Obligations: []api.Entry{
				{Person: "Alice", Amount: "46", Currency: "EUR"},
				{Person: "Bob", Amount: "46", Currency: "EUR"},
			},
		},
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	e := resp.Msg.Expense
	if e.ID == "" || e.CreatedAt == "" {
		t.Errorf("expected ID and CreatedAt to be set, got %+v", e)
	}
	if e.DisplayCurrency != "EUR" {
		t.Errorf("display currency: expected EUR, got %s", e.DisplayCurrency)
	}
	if resp.Msg.Degraded {
		t.Error("expected non-degraded admission")
	}
	if len(resp.Msg.Group.Expenses) != 1 || resp.Msg.Group.Expenses[0].ID != e.ID {
		t.Errorf("expected the group to hold the new expense, got %+v", resp.Msg.Group.Expenses)
	}
}

func TestAddExpense_Rejections(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	groupID := createGroup(t, ts.client, "Alice", "Bob").Group.ID

	tests := []struct {
		name     string
		expense  api.ExpenseInput
		wantCode connect.Code
		wantKind string
	}{
		{
			name: "blank description",
			expense: api.ExpenseInput{
				Description:     " ",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "Alice", Amount: "10", Currency: "USD"}},
				Obligations:     []api.Entry{{Person: "Bob", Amount: "10", Currency: "USD"}},
			},
			wantCode: connect.CodeInvalidArgument,
			wantKind: "InvalidDescription",
		},
		{
			name: "negative amount",
			expense: api.ExpenseInput{
				Description:     "Taxi",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "Alice", Amount: "-10", Currency: "USD"}},
				Obligations:     []api.Entry{{Person: "Bob", Amount: "10", Currency: "USD"}},
			},
			wantCode: connect.CodeInvalidArgument,
			wantKind: "InvalidAmount",
		},
		{
			name: "unknown currency",
			expense: api.ExpenseInput{
				Description:     "Taxi",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "Alice", Amount: "10", Currency: "DOGE"}},
				Obligations:     []api.Entry{{Person: "Bob", Amount: "10", Currency: "USD"}},
			},
			wantCode: connect.CodeInvalidArgument,
			wantKind: "UnknownCurrency",
		},
		{
			name: "unbalanced",
			expense: api.ExpenseInput{
				Description:     "Taxi",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "Alice", Amount: "100", Currency: "USD"}},
				Obligations:     []api.Entry{{Person: "Bob", Amount: "100.02", Currency: "USD"}},
			},
			wantCode: connect.CodeInvalidArgument,
			wantKind: "UnbalancedExpense",
		},
		{
			name:     "person not in group",
			expense:  dinner("Alice", "30", "USD", "Alice", "Mallory"),
			wantCode: connect.CodeFailedPrecondition,
			wantKind: "UnknownParticipant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.client.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{
				GroupID: groupID,
				Expense: tt.expense,
			}))
			if connect.CodeOf(err) != tt.wantCode {
				t.Errorf("code: expected %v, got %v", tt.wantCode, err)
			}
			if kind := errorKind(err); kind != tt.wantKind {
				t.Errorf("kind: expected %s, got %q", tt.wantKind, kind)
			}
		})
	}

	// Nothing was admitted.
	resp, err := ts.client.GetLedger(context.Background(), connect.NewRequest(&api.GetLedgerRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	if len(resp.Msg.Group.Expenses) != 0 {
		t.Errorf("expected no expenses, got %d", len(resp.Msg.Group.Expenses))
	}

	rejected, err := testutil.GatherAndCount(ts.metrics, "brokewise_expenses_rejected_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if rejected != 4 {
		t.Errorf("rejected kinds recorded: expected 4, got %d", rejected)
	}
}

func TestDeleteExpense(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()
	groupID := createGroup(t, ts.client, "Alice", "Bob").Group.ID

	added, err := ts.client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID: groupID,
		Expense: dinner("Alice", "20", "USD", "Alice", "Bob"),
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	resp, err := ts.client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{
		GroupID: groupID, ExpenseID: added.Msg.Expense.ID,
	}))
	if err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if len(resp.Msg.Group.Expenses) != 0 {
		t.Errorf("expected no expenses, got %d", len(resp.Msg.Group.Expenses))
	}

	_, err = ts.client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{
		GroupID: groupID, ExpenseID: added.Msg.Expense.ID,
	}))
	if connect.CodeOf(err) != connect.CodeNotFound || errorKind(err) != "ExpenseNotFound" {
		t.Errorf("expected NotFound/ExpenseNotFound, got %v", err)
	}
}

func TestCalculateGroup(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()
	groupID := createGroup(t, ts.client, "A", "B", "C").Group.ID

	_, err := ts.client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID: groupID,
		Expense: dinner("A", "90", "USD", "A", "B", "C"),
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	resp, err := ts.client.CalculateGroup(ctx, connect.NewRequest(&api.CalculateGroupRequest{
		GroupID: groupID,
	}))
	if err != nil {
		t.Fatalf("CalculateGroup failed: %v", err)
	}

	want := map[string]string{"A": "60.00", "B": "-30.00", "C": "-30.00"}
	for p, w := range want {
		if got := resp.Msg.Settlements[p]; got != w {
			t.Errorf("settlement[%s]: expected %s, got %s", p, w, got)
		}
	}
	if len(resp.Msg.Balances) != 3 || resp.Msg.Balances[0].Participant != "A" || resp.Msg.Balances[0].Paid != "90.00" {
		t.Errorf("balances: expected A first with 90.00 paid, got %+v", resp.Msg.Balances)
	}

	wantTransfers := []api.Transfer{
		{From: "B", To: "A", Amount: "30.00", Currency: "USD"},
		{From: "C", To: "A", Amount: "30.00", Currency: "USD"},
	}
	if len(resp.Msg.Transfers) != len(wantTransfers) {
		t.Fatalf("transfers: expected %d, got %+v", len(wantTransfers), resp.Msg.Transfers)
	}
	for i, w := range wantTransfers {
		if resp.Msg.Transfers[i] != w {
			t.Errorf("transfer[%d]: expected %+v, got %+v", i, w, resp.Msg.Transfers[i])
		}
	}

	info := resp.Msg.ExchangeRateInfo
	if info.BaseCurrency != "USD" || info.Source != "test" || info.Timestamp != 1700000000 {
		t.Errorf("exchange rate info: got %+v", info)
	}
	if resp.Msg.Degraded {
		t.Error("expected non-degraded result")
	}
}

func TestCalculateGroup_OtherBase(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()
	groupID := createGroup(t, ts.client, "A", "B").Group.ID

	_, err := ts.client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID: groupID,
		Expense: dinner("A", "200", "USD", "A", "B"),
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	resp, err := ts.client.CalculateGroup(ctx, connect.NewRequest(&api.CalculateGroupRequest{
		GroupID: groupID, BaseCurrency: "eur",
	}))
	if err != nil {
		t.Fatalf("CalculateGroup failed: %v", err)
	}
	if got := resp.Msg.Settlements["B"]; got != "-92.00" {
		t.Errorf("B: expected -92.00 EUR, got %s", got)
	}
	if resp.Msg.Transfers[0].Currency != "EUR" {
		t.Errorf("transfer currency: expected EUR, got %s", resp.Msg.Transfers[0].Currency)
	}

	_, err = ts.client.CalculateGroup(ctx, connect.NewRequest(&api.CalculateGroupRequest{
		GroupID: groupID, BaseCurrency: "XXX",
	}))
	if errorKind(err) != "UnknownCurrency" {
		t.Errorf("expected UnknownCurrency, got %v", err)
	}
}

func TestCalculateGroup_DegradedRates(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()
	groupID := createGroup(t, ts.client, "A", "B").Group.ID

	_, err := ts.client.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		GroupID: groupID,
		Expense: dinner("A", "10", "EUR", "A", "B"),
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	ts.rates.Err = fx.ErrProviderUnavailable
	resp, err := ts.client.CalculateGroup(ctx, connect.NewRequest(&api.CalculateGroupRequest{
		GroupID: groupID, BaseCurrency: "USD",
	}))
	if err != nil {
		t.Fatalf("CalculateGroup failed: %v", err)
	}
	if !resp.Msg.Degraded || len(resp.Msg.Warnings) == 0 {
		t.Errorf("expected a degraded result with warnings, got %+v", resp.Msg)
	}
	if got := resp.Msg.Settlements["B"]; got != "-5.00" {
		t.Errorf("B: expected -5.00 at 1:1, got %s", got)
	}
}

func TestCalculate(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	resp, err := ts.client.Calculate(context.Background(), connect.NewRequest(&api.CalculateRequest{
		Participants: []string{"A", "B", "C"},
		Expenses: []api.ExpenseInput{
			{
				Description:     "Cabin",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "A", Amount: "70", Currency: "USD"}},
				Obligations:     []api.Entry{{Person: "C", Amount: "70", Currency: "USD"}},
			},
			{
				Description:     "Boat",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "B", Amount: "30", Currency: "USD"}},
				Obligations:     []api.Entry{{Person: "C", Amount: "30", Currency: "USD"}},
			},
		},
	}))
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	want := []api.Transfer{
		{From: "C", To: "A", Amount: "100.00", Currency: "USD"},
		{From: "A", To: "B", Amount: "30.00", Currency: "USD"},
	}
	if len(resp.Msg.Transfers) != len(want) {
		t.Fatalf("transfers: expected %d, got %+v", len(want), resp.Msg.Transfers)
	}
	for i, w := range want {
		if resp.Msg.Transfers[i] != w {
			t.Errorf("transfer[%d]: expected %+v, got %+v", i, w, resp.Msg.Transfers[i])
		}
	}
}

func TestCalculate_TransfersFollowSettlements(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	resp, err := ts.client.Calculate(context.Background(), connect.NewRequest(&api.CalculateRequest{
		Participants: []string{"A", "B", "D"},
		Expenses: []api.ExpenseInput{{
			Description:     "Tea",
			DisplayCurrency: "USD",
			Payments: []api.Entry{
				{Person: "A", Amount: "10.01", Currency: "USD"},
				{Person: "D", Amount: "0.014", Currency: "USD"},
			},
			Obligations: []api.Entry{{Person: "B", Amount: "10.024", Currency: "USD"}},
		}},
	}))
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// Rebuild the transfers from the published balances alone.
	balances := make([]calculator.Balance, len(resp.Msg.Balances))
	for i, b := range resp.Msg.Balances {
		net := decimal.RequireFromString(resp.Msg.Settlements[b.Participant])
		if !net.Equal(decimal.RequireFromString(b.Net)) {
			t.Errorf("%s: settlement %s disagrees with net %s", b.Participant, resp.Msg.Settlements[b.Participant], b.Net)
		}
		balances[i] = calculator.Balance{Participant: b.Participant, Net: net}
	}
	derived := calculator.Settle(balances, currency.USD)

	if len(derived) != len(resp.Msg.Transfers) {
		t.Fatalf("transfers: published %+v, derived %+v", resp.Msg.Transfers, derived)
	}
	for i, d := range derived {
		got := resp.Msg.Transfers[i]
		if got.From != d.From || got.To != d.To || got.Amount != d.Amount.StringFixedBank(2) {
			t.Errorf("transfer[%d]: published %+v, derived %+v", i, got, d)
		}
	}
	want := api.Transfer{From: "B", To: "A", Amount: "10.02", Currency: "USD"}
	if len(resp.Msg.Transfers) != 1 || resp.Msg.Transfers[0] != want {
		t.Errorf("transfers: expected [%+v], got %+v", want, resp.Msg.Transfers)
	}
}

func TestCalculate_EmptyParticipants(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	resp, err := ts.client.Calculate(context.Background(), connect.NewRequest(&api.CalculateRequest{}))
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if len(resp.Msg.Balances) != 0 || len(resp.Msg.Transfers) != 0 {
		t.Errorf("expected an empty result, got %+v", resp.Msg)
	}
	if len(resp.Msg.Warnings) == 0 {
		t.Error("expected a warning for the empty participant set")
	}
}

func TestCalculate_InvalidExpense(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	_, err := ts.client.Calculate(context.Background(), connect.NewRequest(&api.CalculateRequest{
		Participants: []string{"A", "B"},
		Expenses: []api.ExpenseInput{
			dinner("A", "10", "USD", "A", "B"),
			{
				Description:     "Broken",
				DisplayCurrency: "USD",
				Payments:        []api.Entry{{Person: "A", Amount: "100", Currency: "USD"}},
				Obligations:     []api.Entry{{Person: "B", Amount: "100.02", Currency: "USD"}},
			},
		},
	}))
	if errorKind(err) != "UnbalancedExpense" {
		t.Errorf("expected UnbalancedExpense, got %v", err)
	}
}

func TestSplitEvenly(t *testing.T) {
	ts := setupTestServer(t, serverOption{})

	resp, err := ts.client.SplitEvenly(context.Background(), connect.NewRequest(&api.SplitEvenlyRequest{
		DisplayCurrency: "USD",
		Payments:        []api.Entry{{Person: "A", Amount: "100.00", Currency: "USD"}},
		People:          []string{"A", "B", "C"},
	}))
	if err != nil {
		t.Fatalf("SplitEvenly failed: %v", err)
	}

	want := []string{"33.34", "33.33", "33.33"}
	if len(resp.Msg.Obligations) != len(want) {
		t.Fatalf("obligations: expected %d, got %+v", len(want), resp.Msg.Obligations)
	}
	for i, w := range want {
		if resp.Msg.Obligations[i].Amount != w {
			t.Errorf("obligation[%d]: expected %s, got %s", i, w, resp.Msg.Obligations[i].Amount)
		}
	}

	_, err = ts.client.SplitEvenly(context.Background(), connect.NewRequest(&api.SplitEvenlyRequest{
		DisplayCurrency: "USD",
		Payments:        []api.Entry{{Person: "A", Amount: "10", Currency: "USD"}},
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("no people: expected InvalidArgument, got %v", err)
	}
}

func TestGetExchangeRate(t *testing.T) {
	ts := setupTestServer(t, serverOption{})
	ctx := context.Background()

	resp, err := ts.client.GetExchangeRate(ctx, connect.NewRequest(&api.GetExchangeRateRequest{From: "USD", To: "JPY"}))
	if err != nil {
		t.Fatalf("GetExchangeRate failed: %v", err)
	}
	if resp.Msg.Rate != "150" || resp.Msg.Degraded {
		t.Errorf("expected 150, got %+v", resp.Msg)
	}

	same, err := ts.client.GetExchangeRate(ctx, connect.NewRequest(&api.GetExchangeRateRequest{From: "eur", To: "EUR"}))
	if err != nil {
		t.Fatalf("GetExchangeRate failed: %v", err)
	}
	if same.Msg.Rate != "1" {
		t.Errorf("same currency: expected 1, got %s", same.Msg.Rate)
	}
	if calls := ts.rates.Calls(); calls != 1 {
		t.Errorf("provider calls: expected 1, got %d", calls)
	}

	_, err = ts.client.GetExchangeRate(ctx, connect.NewRequest(&api.GetExchangeRateRequest{From: "USD", To: "XYZ"}))
	if errorKind(err) != "UnknownCurrency" {
		t.Errorf("expected UnknownCurrency, got %v", err)
	}
}

func TestEditTokens(t *testing.T) {
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	ts := setupTestServer(t, serverOption{tokens: tokens})
	ctx := context.Background()

	first := createGroup(t, ts.client, "Alice")
	second := createGroup(t, ts.client, "Bob")
	if first.EditToken == "" {
		t.Fatal("expected an edit token")
	}

	addBob := func(token string, groupID string) error {
		req := connect.NewRequest(&api.AddParticipantRequest{GroupID: groupID, Name: "Zed"})
		if token != "" {
			req.Header().Set("Authorization", "Bearer "+token)
		}
		_, err := ts.client.AddParticipant(ctx, req)
		return err
	}

	if err := addBob("", first.Group.ID); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("no token: expected Unauthenticated, got %v", err)
	}
	if err := addBob(second.EditToken, first.Group.ID); connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("other group's token: expected PermissionDenied, got %v", err)
	}
	if err := addBob(first.EditToken, first.Group.ID); err != nil {
		t.Errorf("own token: expected success, got %v", err)
	}

	// Reads stay open.
	if _, err := ts.client.GetLedger(ctx, connect.NewRequest(&api.GetLedgerRequest{GroupID: first.Group.ID})); err != nil {
		t.Errorf("GetLedger without token failed: %v", err)
	}
}
