package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mmynk/brokewise/internal/calculator"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col > 0 {
				return s.Align(lipgloss.Right)
			}
			return s
		})
}

func balancesTable(balances []calculator.Balance) string {
	t := newTable("PARTICIPANT", "PAID", "OWED", "NET")
	for _, b := range balances {
		t.Row(b.Participant,
			b.Paid.StringFixedBank(2),
			b.Owed.StringFixedBank(2),
			b.Net.StringFixedBank(2),
		)
	}
	return t.String()
}

func sharesTable(rows [][]string) string {
	return newTable("PARTICIPANT", "SHARE").Rows(rows...).String()
}
