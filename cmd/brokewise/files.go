package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/brokewise/internal/calculator"
	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/fx"
)

// ledgerFile is the on-disk ledger. JSON documents parse as well.
type ledgerFile struct {
	Participants []string      `yaml:"participants"`
	Expenses     []expenseFile `yaml:"expenses"`
}

type expenseFile struct {
	Description     string      `yaml:"description"`
	DisplayCurrency string      `yaml:"displayCurrency"`
	Payments        []entryFile `yaml:"payments"`
	Obligations     []entryFile `yaml:"obligations"`
}

type entryFile struct {
	Person   string `yaml:"person"`
	Amount   string `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// ratesFile holds units of each currency per one unit of Pivot.
type ratesFile struct {
	Pivot     string            `yaml:"pivot"`
	Source    string            `yaml:"source"`
	Timestamp int64             `yaml:"timestamp"`
	Rates     map[string]string `yaml:"rates"`
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadLedgerFile(path string) (*ledgerFile, error) {
	var lf ledgerFile
	if err := readYAML(path, &lf); err != nil {
		return nil, err
	}
	if len(lf.Participants) == 0 {
		lf.Participants = lf.people()
	}
	return &lf, nil
}

// people lists everyone named by an expense, in first-seen order.
func (lf *ledgerFile) people() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range lf.Expenses {
		for _, side := range [][]entryFile{e.Payments, e.Obligations} {
			for _, entry := range side {
				name := strings.TrimSpace(entry.Person)
				if name != "" && !seen[name] {
					seen[name] = true
					out = append(out, name)
				}
			}
		}
	}
	return out
}

func (e expenseFile) draft() calculator.ExpenseDraft {
	return calculator.ExpenseDraft{
		Description:     e.Description,
		DisplayCurrency: e.DisplayCurrency,
		Payments:        entryDrafts(e.Payments),
		Obligations:     entryDrafts(e.Obligations),
	}
}

func entryDrafts(entries []entryFile) []calculator.EntryDraft {
	out := make([]calculator.EntryDraft, len(entries))
	for i, e := range entries {
		out[i] = calculator.EntryDraft{Person: e.Person, Amount: e.Amount, Currency: e.Currency}
	}
	return out
}

func loadRatesFile(path string) (*fx.StaticProvider, error) {
	var rf ratesFile
	if err := readYAML(path, &rf); err != nil {
		return nil, err
	}

	pivot, err := currency.Parse(rf.Pivot)
	if err != nil {
		return nil, fmt.Errorf("%s: pivot: %w", path, err)
	}
	p := &fx.StaticProvider{
		Pivot:     pivot,
		PerPivot:  make(map[currency.Code]decimal.Decimal, len(rf.Rates)),
		Source:    rf.Source,
		Timestamp: rf.Timestamp,
	}
	if p.Source == "" {
		p.Source = path
	}
	for code, value := range rf.Rates {
		c, err := currency.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		d, err := decimal.NewFromString(value)
		if err != nil || !d.IsPositive() {
			return nil, fmt.Errorf("%s: rate for %s must be a positive number, got %q", path, c, value)
		}
		p.PerPivot[c] = d
	}
	return p, nil
}
