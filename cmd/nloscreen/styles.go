package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primary = lipgloss.Color("#7C3AED")
	success = lipgloss.Color("#10B981")
	danger  = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	bestStyle   = lipgloss.NewStyle().Bold(true).Foreground(success).Padding(0, 1)
	failedStyle = lipgloss.NewStyle().Foreground(danger).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
)

// renderTable draws rows under headers. highlight marks one row as the best
// (-1 for none); failed marks rows rendered as errors.
func renderTable(headers []string, rows [][]string, highlight int, failed map[int]bool) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == highlight:
				return bestStyle
			case failed[row]:
				return failedStyle
			default:
				return cellStyle
			}
		}).
		Render()
}

func formatSci(v float64) string {
	return strconv.FormatFloat(v, 'e', 4, 64)
}

func formatFixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatOptional(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return formatSci(v)
}

func formatPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
