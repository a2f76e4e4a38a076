package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// seriesItem implements list.Item for one cached series.
type seriesItem struct {
	row histcache.CoverageRow
}

func (i seriesItem) Title() string {
	return fmt.Sprintf("%s %s %s", i.row.Symbol, i.row.BarSize, i.row.DataType)
}

func (i seriesItem) Description() string {
	return fmt.Sprintf("%d bars from %s to %s", i.row.Bars,
		i.row.FirstTime.Format("2006-01-02"), i.row.LastTime.Format("2006-01-02"))
}

func (i seriesItem) FilterValue() string { return i.row.Symbol }

// NewSeriesList creates the list the cached series are selected from. Items
// arrive later, once a cache file is open.
func NewSeriesList() list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Select Cached Series"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// SeriesItems converts coverage rows into sorted list items.
func SeriesItems(rows []histcache.CoverageRow) []list.Item {
	sorted := make([]histcache.CoverageRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		if sorted[i].DataType != sorted[j].DataType {
			return sorted[i].DataType < sorted[j].DataType
		}
		return sorted[i].BarSize < sorted[j].BarSize
	})

	items := make([]list.Item, 0, len(sorted))
	for _, row := range sorted {
		items = append(items, seriesItem{row: row})
	}

	return items
}

// NewPathInput creates the text input for the cache file path.
func NewPathInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "histdata.db"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// NewBarsTable creates the table displaying the bars of one series.
func NewBarsTable() table.Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Open", Width: 12},
		{Title: "High", Width: 12},
		{Title: "Low", Width: 12},
		{Title: "Close", Width: 12},
		{Title: "Volume", Width: 12},
		{Title: "Count", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateTableRows fills the table with the given bars, null cells rendered
// as "-".
func UpdateTableRows(t table.Model, bars []types.Bar) table.Model {
	rows := make([]table.Row, 0, len(bars))

	for _, bar := range bars {
		rows = append(rows, table.Row{
			bar.Time.Format(time.DateTime),
			FormatPriceCell(bar.Open),
			FormatPriceCell(bar.High),
			FormatPriceCell(bar.Low),
			FormatPriceCell(bar.Close),
			FormatCountCell(bar.Volume),
			FormatCountCell(bar.BarCount),
		})
	}

	t.SetRows(rows)

	return t
}
