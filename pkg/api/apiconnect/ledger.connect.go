// Package apiconnect wires the brokewise.v1.LedgerService messages to
// connect handlers and clients, using the JSON codec from connectjson.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/brokewise/pkg/api"
	"github.com/mmynk/brokewise/pkg/connectjson"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "brokewise.v1.LedgerService"

// Procedure paths, as they appear in URL paths and in Spec.Procedure.
const (
	LedgerServiceCreateGroupProcedure       = "/brokewise.v1.LedgerService/CreateGroup"
	LedgerServiceGetLedgerProcedure         = "/brokewise.v1.LedgerService/GetLedger"
	LedgerServiceAddParticipantProcedure    = "/brokewise.v1.LedgerService/AddParticipant"
	LedgerServiceRemoveParticipantProcedure = "/brokewise.v1.LedgerService/RemoveParticipant"
	LedgerServiceAddExpenseProcedure        = "/brokewise.v1.LedgerService/AddExpense"
	LedgerServiceDeleteExpenseProcedure     = "/brokewise.v1.LedgerService/DeleteExpense"
	LedgerServiceCalculateGroupProcedure    = "/brokewise.v1.LedgerService/CalculateGroup"
	LedgerServiceCalculateProcedure         = "/brokewise.v1.LedgerService/Calculate"
	LedgerServiceSplitEvenlyProcedure       = "/brokewise.v1.LedgerService/SplitEvenly"
	LedgerServiceGetExchangeRateProcedure   = "/brokewise.v1.LedgerService/GetExchangeRate"
)

// MutatingProcedures change a stored group and may require an edit token.
var MutatingProcedures = []string{
	LedgerServiceAddParticipantProcedure,
	LedgerServiceRemoveParticipantProcedure,
	LedgerServiceAddExpenseProcedure,
	LedgerServiceDeleteExpenseProcedure,
}

// LedgerServiceHandler is implemented by the server.
type LedgerServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetLedger(context.Context, *connect.Request[api.GetLedgerRequest]) (*connect.Response[api.GetLedgerResponse], error)
	AddParticipant(context.Context, *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.AddParticipantResponse], error)
	RemoveParticipant(context.Context, *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error)
	AddExpense(context.Context, *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	CalculateGroup(context.Context, *connect.Request[api.CalculateGroupRequest]) (*connect.Response[api.CalculateResponse], error)
	Calculate(context.Context, *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error)
	SplitEvenly(context.Context, *connect.Request[api.SplitEvenlyRequest]) (*connect.Response[api.SplitEvenlyResponse], error)
	GetExchangeRate(context.Context, *connect.Request[api.GetExchangeRateRequest]) (*connect.Response[api.GetExchangeRateResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LedgerServiceCreateGroupProcedure, connect.NewUnaryHandler(LedgerServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(LedgerServiceGetLedgerProcedure, connect.NewUnaryHandler(LedgerServiceGetLedgerProcedure, svc.GetLedger, opts...))
	mux.Handle(LedgerServiceAddParticipantProcedure, connect.NewUnaryHandler(LedgerServiceAddParticipantProcedure, svc.AddParticipant, opts...))
	mux.Handle(LedgerServiceRemoveParticipantProcedure, connect.NewUnaryHandler(LedgerServiceRemoveParticipantProcedure, svc.RemoveParticipant, opts...))
	mux.Handle(LedgerServiceAddExpenseProcedure, connect.NewUnaryHandler(LedgerServiceAddExpenseProcedure, svc.AddExpense, opts...))
	mux.Handle(LedgerServiceDeleteExpenseProcedure, connect.NewUnaryHandler(LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(LedgerServiceCalculateGroupProcedure, connect.NewUnaryHandler(LedgerServiceCalculateGroupProcedure, svc.CalculateGroup, opts...))
	mux.Handle(LedgerServiceCalculateProcedure, connect.NewUnaryHandler(LedgerServiceCalculateProcedure, svc.Calculate, opts...))
	mux.Handle(LedgerServiceSplitEvenlyProcedure, connect.NewUnaryHandler(LedgerServiceSplitEvenlyProcedure, svc.SplitEvenly, opts...))
	mux.Handle(LedgerServiceGetExchangeRateProcedure, connect.NewUnaryHandler(LedgerServiceGetExchangeRateProcedure, svc.GetExchangeRate, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient is a client for the brokewise.v1.LedgerService service.
type LedgerServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetLedger(context.Context, *connect.Request[api.GetLedgerRequest]) (*connect.Response[api.GetLedgerResponse], error)
	AddParticipant(context.Context, *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.AddParticipantResponse], error)
	RemoveParticipant(context.Context, *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error)
	AddExpense(context.Context, *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	CalculateGroup(context.Context, *connect.Request[api.CalculateGroupRequest]) (*connect.Response[api.CalculateResponse], error)
	Calculate(context.Context, *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error)
	SplitEvenly(context.Context, *connect.Request[api.SplitEvenlyRequest]) (*connect.Response[api.SplitEvenlyResponse], error)
	GetExchangeRate(context.Context, *connect.Request[api.GetExchangeRateRequest]) (*connect.Response[api.GetExchangeRateResponse], error)
}

// NewLedgerServiceClient constructs a client for the LedgerService at baseURL
// (e.g. http://localhost:8080).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connectjson.WithCodec()}, opts...)
	return &ledgerServiceClient{
		createGroup:       connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+LedgerServiceCreateGroupProcedure, opts...),
		getLedger:         connect.NewClient[api.GetLedgerRequest, api.GetLedgerResponse](httpClient, baseURL+LedgerServiceGetLedgerProcedure, opts...),
		addParticipant:    connect.NewClient[api.AddParticipantRequest, api.AddParticipantResponse](httpClient, baseURL+LedgerServiceAddParticipantProcedure, opts...),
		removeParticipant: connect.NewClient[api.RemoveParticipantRequest, api.RemoveParticipantResponse](httpClient, baseURL+LedgerServiceRemoveParticipantProcedure, opts...),
		addExpense:        connect.NewClient[api.AddExpenseRequest, api.AddExpenseResponse](httpClient, baseURL+LedgerServiceAddExpenseProcedure, opts...),
		deleteExpense:     connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](httpClient, baseURL+LedgerServiceDeleteExpenseProcedure, opts...),
		calculateGroup:    connect.NewClient[api.CalculateGroupRequest, api.CalculateResponse](httpClient, baseURL+LedgerServiceCalculateGroupProcedure, opts...),
		calculate:         connect.NewClient[api.CalculateRequest, api.CalculateResponse](httpClient, baseURL+LedgerServiceCalculateProcedure, opts...),
		splitEvenly:       connect.NewClient[api.SplitEvenlyRequest, api.SplitEvenlyResponse](httpClient, baseURL+LedgerServiceSplitEvenlyProcedure, opts...),
		getExchangeRate:   connect.NewClient[api.GetExchangeRateRequest, api.GetExchangeRateResponse](httpClient, baseURL+LedgerServiceGetExchangeRateProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	createGroup       *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getLedger         *connect.Client[api.GetLedgerRequest, api.GetLedgerResponse]
	addParticipant    *connect.Client[api.AddParticipantRequest, api.AddParticipantResponse]
	removeParticipant *connect.Client[api.RemoveParticipantRequest, api.RemoveParticipantResponse]
	addExpense        *connect.Client[api.AddExpenseRequest, api.AddExpenseResponse]
	deleteExpense     *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	calculateGroup    *connect.Client[api.CalculateGroupRequest, api.CalculateResponse]
	calculate         *connect.Client[api.CalculateRequest, api.CalculateResponse]
	splitEvenly       *connect.Client[api.SplitEvenlyRequest, api.SplitEvenlyResponse]
	getExchangeRate   *connect.Client[api.GetExchangeRateRequest, api.GetExchangeRateResponse]
}

func (c *ledgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetLedger(ctx context.Context, req *connect.Request[api.GetLedgerRequest]) (*connect.Response[api.GetLedgerResponse], error) {
	return c.getLedger.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) AddParticipant(ctx context.Context, req *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.AddParticipantResponse], error) {
	return c.addParticipant.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) CalculateGroup(ctx context.Context, req *connect.Request[api.CalculateGroupRequest]) (*connect.Response[api.CalculateResponse], error) {
	return c.calculateGroup.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) Calculate(ctx context.Context, req *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error) {
	return c.calculate.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) SplitEvenly(ctx context.Context, req *connect.Request[api.SplitEvenlyRequest]) (*connect.Response[api.SplitEvenlyResponse], error) {
	return c.splitEvenly.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetExchangeRate(ctx context.Context, req *connect.Request[api.GetExchangeRateRequest]) (*connect.Response[api.GetExchangeRateResponse], error) {
	return c.getExchangeRate.CallUnary(ctx, req)
}
