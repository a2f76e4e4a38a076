package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)
)

// FormatPriceCell renders an optional price cell, "-" when the cell is null.
func FormatPriceCell(price optional.Option[decimal.Decimal]) string {
	if price.IsNone() {
		return "-"
	}

	return price.Unwrap().StringFixed(4)
}

// FormatCountCell renders an optional count cell, "-" when the cell is null.
func FormatCountCell(count optional.Option[int64]) string {
	if count.IsNone() {
		return "-"
	}

	return strconv.FormatInt(count.Unwrap(), 10)
}
