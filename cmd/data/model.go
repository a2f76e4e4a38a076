package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// Application states.
const (
	StateCacheInput = iota
	StateSeriesSelect
	StateBarsDisplay
)

// Model is the main Bubble Tea model for the cache browser.
type Model struct {
	state      int
	pathInput  textinput.Model
	seriesList list.Model
	barsTable  table.Model
	store      histcache.Store
	coverage   []histcache.CoverageRow
	selected   histcache.CoverageRow
	bars       []types.Bar
	err        error
	width      int
	height     int
}

// NewModel creates a new Model with initial state.
func NewModel() Model {
	return Model{
		state:      StateCacheInput,
		pathInput:  NewPathInput(),
		seriesList: NewSeriesList(),
		barsTable:  NewBarsTable(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.closeStore()
			return m, tea.Quit
		case "q":
			// Only quit on 'q' if not in text input mode
			if m.state != StateCacheInput {
				m.closeStore()
				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seriesList.SetSize(msg.Width, msg.Height-4)
		m.barsTable.SetWidth(msg.Width)
		m.barsTable.SetHeight(msg.Height - 6)
		return m, nil

	case CoverageLoadedMsg:
		m.store = msg.Store
		m.coverage = msg.Rows
		m.err = nil
		m.state = StateSeriesSelect
		return m, m.seriesList.SetItems(SeriesItems(msg.Rows))

	case BarsLoadedMsg:
		m.bars = msg.Bars
		m.barsTable = UpdateTableRows(m.barsTable, msg.Bars)
		m.state = StateBarsDisplay
		return m, nil

	case LoadErrorMsg:
		m.err = msg.Err
		if m.state == StateCacheInput {
			m.pathInput.Focus()
		}
		return m, nil
	}

	// Delegate to state-specific update
	switch m.state {
	case StateCacheInput:
		return m.updateCacheInput(msg)
	case StateSeriesSelect:
		return m.updateSeriesSelect(msg)
	case StateBarsDisplay:
		return m.updateBarsDisplay(msg)
	}

	return m, nil
}

// closeStore releases the open cache, if any.
func (m *Model) closeStore() {
	if m.store != nil {
		_ = m.store.Close()
		m.store = nil
	}
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSeriesSelect:
		// Release the cache and return to the path prompt
		m.closeStore()
		m.coverage = nil
		m.err = nil
		m.pathInput.Focus()
		m.state = StateCacheInput
		return m, textinput.Blink
	case StateBarsDisplay:
		m.bars = nil
		m.selected = histcache.CoverageRow{}
		m.err = nil
		m.state = StateSeriesSelect
	}
	return m, nil
}

func (m Model) updateCacheInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			path := strings.TrimSpace(m.pathInput.Value())
			if path != "" {
				m.pathInput.Blur()
				return m, openCache(path)
			}
		}
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) updateSeriesSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.seriesList.SelectedItem().(seriesItem); ok {
				m.selected = item.row
				return m, loadBars(m.store, item.row)
			}
		}
	}

	var cmd tea.Cmd
	m.seriesList, cmd = m.seriesList.Update(msg)
	return m, cmd
}

func (m Model) updateBarsDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.barsTable, cmd = m.barsTable.Update(msg)
	return m, cmd
}

// openCache returns a command that opens a cache file and reads its coverage.
func openCache(path string) tea.Cmd {
	return func() tea.Msg {
		// The store logs through zap; a nop logger keeps log lines out of
		// the terminal UI.
		store, err := histcache.NewDuckDBStore(path, logger.NewNop())
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		rows, err := store.Coverage(context.Background())
		if err != nil {
			_ = store.Close()
			return LoadErrorMsg{Err: err}
		}

		return CoverageLoadedMsg{Store: store, Rows: rows}
	}
}

// loadBars returns a command that reads every cached bar of one series.
func loadBars(store histcache.Store, row histcache.CoverageRow) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return LoadErrorMsg{Err: fmt.Errorf("cache not open")}
		}

		block, err := store.Query(context.Background(), row.SecurityType, row.Symbol,
			row.DataType, row.BarSize, row.FirstTime, row.LastTime)
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		return BarsLoadedMsg{Bars: block.Bars()}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateCacheInput:
		s.WriteString(TitleStyle.Render("Argo Histdata - Cache Browser"))
		s.WriteString("\n\n")
		s.WriteString("Enter the path to a cache file (e.g., histdata.db):\n\n")
		s.WriteString(m.pathInput.View())
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		s.WriteString(HelpStyle.Render("Press Enter to open, Ctrl+C to quit"))

	case StateSeriesSelect:
		s.WriteString(TitleStyle.Render("Cached Series"))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.coverage) == 0 {
			s.WriteString("Cache is empty.\n")
		} else {
			s.WriteString(m.seriesList.View())
			s.WriteString("\n")
		}

		s.WriteString(HelpStyle.Render("Press Enter to inspect, Esc to go back, q to quit"))

	case StateBarsDisplay:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s %s - %s",
			m.selected.Symbol, m.selected.BarSize, m.selected.DataType, m.selected.SecurityType)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.bars) == 0 {
			s.WriteString("No bars cached for this series.\n")
		} else {
			s.WriteString(m.barsTable.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("q: quit | Esc: back | %d bars", len(m.bars))))
	}

	return s.String()
}
