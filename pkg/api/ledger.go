// Package api defines the messages of the brokewise.v1.LedgerService.
//
// Amounts travel as decimal strings. Responses carry them rounded to cents;
// requests may carry any precision.
package api

// Entry is one payment or obligation line.
type Entry struct {
	Person   string `json:"person"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Expense is an admitted expense.
type Expense struct {
	ID              string  `json:"id"`
	Description     string  `json:"description"`
	DisplayCurrency string  `json:"displayCurrency"`
	Payments        []Entry `json:"payments"`
	Obligations     []Entry `json:"obligations"`
	CreatedAt       string  `json:"createdAt"` // RFC 3339
}

// ExpenseInput is an expense as submitted, before validation.
type ExpenseInput struct {
	Description     string  `json:"description"`
	DisplayCurrency string  `json:"displayCurrency"`
	Payments        []Entry `json:"payments"`
	Obligations     []Entry `json:"obligations"`
}

// Group is a shared ledger.
type Group struct {
	ID             string    `json:"id"`
	Participants   []string  `json:"participants"`
	Expenses       []Expense `json:"expenses"`
	CreatedAt      int64     `json:"createdAt"`
	LastAccessedAt int64     `json:"lastAccessedAt"`
}

// Balance is one participant's position in the base currency.
type Balance struct {
	Participant string `json:"participant"`
	Paid        string `json:"paid"`
	Owed        string `json:"owed"`
	Net         string `json:"net"`
}

// Transfer is one payment needed to settle up.
type Transfer struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ExchangeRateInfo says where the rates of a computation came from.
type ExchangeRateInfo struct {
	Source       string `json:"source"`
	Timestamp    int64  `json:"timestamp"`
	BaseCurrency string `json:"baseCurrency"`
}

type CreateGroupRequest struct {
	Participants []string `json:"participants" validate:"max=100"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`

	// EditToken authorizes edits to the group. Empty when edits are open.
	EditToken string `json:"editToken,omitempty"`
}

type GetLedgerRequest struct {
	GroupID string `json:"groupId" validate:"required,uuid"`
}

type GetLedgerResponse struct {
	Group *Group `json:"group"`
}

type AddParticipantRequest struct {
	GroupID string `json:"groupId" validate:"required,uuid"`
	Name    string `json:"name" validate:"max=100"`
}

type AddParticipantResponse struct {
	Group *Group `json:"group"`
}

type RemoveParticipantRequest struct {
	GroupID string `json:"groupId" validate:"required,uuid"`
	Name    string `json:"name" validate:"required"`
}

type RemoveParticipantResponse struct {
	Group *Group `json:"group"`
}

type AddExpenseRequest struct {
	GroupID string       `json:"groupId" validate:"required,uuid"`
	Expense ExpenseInput `json:"expense"`
}

type AddExpenseResponse struct {
	Expense  *Expense `json:"expense"`
	Group    *Group   `json:"group"`
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}

type DeleteExpenseRequest struct {
	GroupID   string `json:"groupId" validate:"required,uuid"`
	ExpenseID string `json:"expenseId" validate:"required"`
}

type DeleteExpenseResponse struct {
	Group *Group `json:"group"`
}

type CalculateGroupRequest struct {
	GroupID      string `json:"groupId" validate:"required,uuid"`
	BaseCurrency string `json:"baseCurrency"`
}

// CalculateRequest settles a ledger supplied inline, without storing it.
type CalculateRequest struct {
	Participants []string       `json:"participants" validate:"max=100"`
	Expenses     []ExpenseInput `json:"expenses" validate:"max=1000"`
	BaseCurrency string         `json:"baseCurrency"`
}

type CalculateResponse struct {
	// Settlements maps each participant to their net balance.
	Settlements      map[string]string `json:"settlements"`
	Balances         []Balance         `json:"balances"`
	Transfers        []Transfer        `json:"transfers"`
	ExchangeRateInfo ExchangeRateInfo  `json:"exchangeRateInfo"`
	Degraded         bool              `json:"degraded"`
	Warnings         []string          `json:"warnings,omitempty"`
}

type SplitEvenlyRequest struct {
	DisplayCurrency string   `json:"displayCurrency"`
	Payments        []Entry  `json:"payments"`
	People          []string `json:"people" validate:"max=100"`
}

type SplitEvenlyResponse struct {
	Obligations []Entry `json:"obligations"`
	Degraded    bool    `json:"degraded"`
}

type GetExchangeRateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type GetExchangeRateResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Rate      string `json:"rate"`
	Degraded  bool   `json:"degraded"`
	Source    string `json:"source,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// GroupScoped is implemented by requests that act on one group.
type GroupScoped interface {
	GetGroupID() string
}

func (r *GetLedgerRequest) GetGroupID() string         { return r.GroupID }
func (r *AddParticipantRequest) GetGroupID() string    { return r.GroupID }
func (r *RemoveParticipantRequest) GetGroupID() string { return r.GroupID }
func (r *AddExpenseRequest) GetGroupID() string        { return r.GroupID }
func (r *DeleteExpenseRequest) GetGroupID() string     { return r.GroupID }
func (r *CalculateGroupRequest) GetGroupID() string    { return r.GroupID }
