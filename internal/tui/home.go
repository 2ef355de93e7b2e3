package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/model"
	"github.com/dukerupert/smartgrocery/internal/scanner"
)

const maxResults = 10

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Enter Product Name or Barcode to see details"
	ti.CharLimit = 128
	ti.Width = 48
	ti.Focus()
	return ti
}

func newScanPathInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Path to a photo or GIF of a barcode"
	ti.CharLimit = 512
	ti.Width = 48
	return ti
}

func (m Model) otherHomeInput() string {
	if m.scanMode {
		return "search"
	}
	return "scan"
}

func (m Model) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchMsg:
		m.busy = false
		m.result = msg.result
		m.err = ""
		m.status = ""
		if !msg.result.Found() {
			m.err = msg.result.Message
		}
		return m, nil
	case scanMsg:
		m.search.SetValue(msg.barcode)
		m.scanPath.SetValue("")
		m.toggleScan(false)
		m.status = "Scanned " + msg.barcode
		return m.submitSearch()
	case signedOutMsg:
		m.session = nil
		m.items = nil
		m.result = grocery.SearchResult{}
		m.search.SetValue("")
		m.goTo(screenLogin, false)
		m.status = msgSignedOut
		return m, nil
	case itemsMsg, itemSavedMsg, itemDeletedMsg:
		return m, nil
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab":
			m.toggleScan(!m.scanMode)
			return m, nil
		case "enter":
			if m.scanMode {
				return m.submitScan()
			}
			return m.submitSearch()
		case "ctrl+l":
			m.goTo(screenList, false)
			return m, m.loadItemsCmd()
		case "ctrl+n":
			return m.openItemForm(nil, model.GroceryItem{}, screenHome), nil
		case "ctrl+a":
			draft, ok := m.draftFromResult()
			if !ok {
				m.err = "Search for a product first"
				return m, nil
			}
			return m.openItemForm(nil, draft, screenHome), nil
		case "ctrl+x":
			m.busy = true
			return m, m.signOutCmd()
		case "esc":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	if m.scanMode {
		m.scanPath, cmd = m.scanPath.Update(msg)
	} else {
		m.search, cmd = m.search.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleScan(on bool) {
	m.scanMode = on
	if on {
		m.search.Blur()
		m.scanPath.Focus()
	} else {
		m.scanPath.Blur()
		m.search.Focus()
	}
}

func (m Model) submitSearch() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.search.Value())
	ctx, g := m.ctx, m.groceries
	m.busy = true
	m.err = ""
	return m, run(func() (tea.Msg, error) {
		type outcome struct {
			res grocery.SearchResult
			err error
		}
		done := make(chan outcome, 1)
		g.SearchAsync(ctx, input, func(res grocery.SearchResult, err error) {
			done <- outcome{res, err}
		})
		select {
		case o := <-done:
			return searchMsg{o.res}, o.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func (m Model) submitScan() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.scanPath.Value())
	if path == "" {
		m.err = "Enter the path of an image to scan"
		return m, nil
	}
	ctx, decoder, logger := m.ctx, m.decoder, m.logger
	m.busy = true
	m.err = ""
	return m, run(func() (tea.Msg, error) {
		barcode, err := scanFile(ctx, decoder, logger, path)
		return scanMsg{barcode}, err
	})
}

// scanFile reads path as a still photo or an animated GIF and returns the
// first barcode found across its frames.
func scanFile(ctx context.Context, decoder scanner.Decoder, logger *slog.Logger, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	frames, err := scanner.ReadFrames(f)
	f.Close()
	if err != nil {
		return "", err
	}
	return scanner.DecodeFrames(ctx, decoder, logger, frames)
}

// draftFromResult prefills a new item from the product currently shown.
func (m Model) draftFromResult() (model.GroceryItem, bool) {
	switch {
	case m.result.Product.Found():
		return model.GroceryItem{
			Name:    m.result.Product.Product.Name(),
			Barcode: m.result.Product.Code,
		}, true
	case len(m.result.Products) > 0:
		return model.GroceryItem{Name: m.result.Products[0].Name()}, true
	}
	return model.GroceryItem{}, false
}

func (m Model) homeView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Smart Grocery List"))
	if m.session != nil && m.session.User != nil {
		b.WriteString("  " + mutedStyle.Render(m.session.User.Email))
	}
	b.WriteString("\n\n")
	b.WriteString(m.search.View() + "\n")
	b.WriteString(mutedStyle.Render("Scan Barcode: ") + m.scanPath.View() + "\n")

	switch {
	case m.result.Product.Found():
		b.WriteString("\n" + titleStyle.Render("Product Details") + "\n")
		b.WriteString(productLines(*m.result.Product.Product, m.result.Product.Code))
	case len(m.result.Products) > 0:
		b.WriteString("\n" + titleStyle.Render("Search Results") + "\n")
		for i, p := range m.result.Products {
			if i == maxResults {
				b.WriteString(mutedStyle.Render(fmt.Sprintf("... %d more", len(m.result.Products)-maxResults)) + "\n")
				break
			}
			b.WriteString(fmt.Sprintf("%s %s\n", accentStyle.Render("•"), p.Name()))
			b.WriteString(mutedStyle.Render("  Nutrition grade: "+p.Grade()) + "\n")
		}
	}
	return b.String()
}

func productLines(p model.Product, code string) string {
	lines := []string{
		"Name: " + p.Name(),
		"Nutrition grade: " + p.Grade(),
	}
	if code != "" {
		lines = append(lines, "Barcode: "+code)
	}
	if n := p.Nutriments; n != nil {
		lines = append(lines,
			"Carbohydrates: "+formatNutrient(n.Carbohydrates, "g"),
			"Sugars: "+formatNutrient(n.Sugars, "g"),
			"Energy: "+formatNutrient(n.Energy, "kJ"),
		)
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatNutrient(v *float64, unit string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f %s", *v, unit)
}
