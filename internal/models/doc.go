// Package models defines the core domain models for Brokewise.
//
// # Models
//
//   - Money: an exact decimal amount tagged with a supported currency code
//   - Entry: one person's payment or obligation on an expense
//   - Expense: a described outlay with payments and obligations that balance
//     in the expense's display currency
//   - Ledger: the participants of a group and their expenses, in order
//   - Group: the persisted unit, a Ledger plus identity and access times
//
// Participants are identified by name strings; there are no user accounts.
//
// # Design Principles
//
//  1. Ledger is a value: every mutation returns a new Ledger and leaves the
//     receiver untouched, so a computation never observes a half-applied edit.
//  2. Converted amounts are never stored. Money always keeps the currency it
//     was entered in; conversion happens on read against current rates.
//  3. Expenses are never edited in place. An edit is a delete plus a create.
package models
