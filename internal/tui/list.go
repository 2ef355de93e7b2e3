package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/model"
)

// itemEntry adapts a grocery item to list.Item.
type itemEntry struct {
	item model.GroceryItem
}

func (e itemEntry) Title() string       { return e.item.Name }
func (e itemEntry) Description() string { return e.item.Category }
func (e itemEntry) FilterValue() string { return e.item.Name }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 2 }
func (d itemDelegate) Spacing() int                              { return 1 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	e, ok := li.(itemEntry)
	if !ok {
		return
	}
	name := fmt.Sprintf("%s  x%d", e.item.Name, e.item.Quantity)
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render(">") + " "
		name = focusedStyle.Render(name)
	}

	expires := "Expires: " + e.item.ExpirationDate
	if e.item.ExpirationDate == "" {
		expires = "Expires: -"
	} else if expired(e.item.ExpirationDate, time.Now()) {
		expires = expiredStyle.Render(expires + " (expired)")
	}
	fmt.Fprintf(w, "%s%s\n  %s  %s", prefix, name,
		mutedStyle.Render("Category: "+e.item.Category), expires)
}

// expired reports whether date is before the current day in now's location.
func expired(date string, now time.Time) bool {
	t, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	return t.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

func newItemList() list.Model {
	l := list.New(nil, itemDelegate{}, 76, 16)
	l.Title = "Your Grocery Items"
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("item", "items")
	return l
}

func (m Model) loadItemsCmd() tea.Cmd {
	ctx, g, userID := m.ctx, m.groceries, m.userID()
	return run(func() (tea.Msg, error) {
		items, err := g.Items(ctx, userID)
		return itemsMsg{items}, err
	})
}

func (m Model) sortKey() grocery.SortKey {
	return grocery.SortKeys[m.sortIdx%len(grocery.SortKeys)]
}

func (m Model) category() string {
	return grocery.Categories[m.filterIdx%len(grocery.Categories)]
}

// visible applies the current category filter and sort to the loaded items.
func (m Model) visible() []model.GroceryItem {
	return grocery.Sort(grocery.Filter(m.items, m.category()), m.sortKey())
}

func (m *Model) refreshList() tea.Cmd {
	view := m.visible()
	entries := make([]list.Item, 0, len(view))
	for _, it := range view {
		entries = append(entries, itemEntry{it})
	}
	return m.list.SetItems(entries)
}

func (m Model) selected() (model.GroceryItem, bool) {
	e, ok := m.list.SelectedItem().(itemEntry)
	return e.item, ok
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case itemsMsg:
		m.busy = false
		m.items = msg.items
		return m, m.refreshList()
	case itemDeletedMsg:
		m.busy = false
		kept := m.items[:0:0]
		for _, it := range m.items {
			if it.ID != msg.id {
				kept = append(kept, it)
			}
		}
		m.items = kept
		m.status = "Item deleted"
		return m, m.refreshList()
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.deleting != nil {
			return m.updateDeleteDialog(msg)
		}
		switch msg.String() {
		case "esc", "q":
			m.goTo(screenHome, false)
			return m, nil
		case "s":
			m.sortIdx = (m.sortIdx + 1) % len(grocery.SortKeys)
			return m, m.refreshList()
		case "c":
			m.filterIdx = (m.filterIdx + 1) % len(grocery.Categories)
			return m, m.refreshList()
		case "a":
			return m.openItemForm(nil, model.GroceryItem{}, screenList), nil
		case "e", "enter":
			if it, ok := m.selected(); ok {
				return m.openItemForm(&it, it, screenList), nil
			}
			return m, nil
		case "d":
			if it, ok := m.selected(); ok {
				m.deleting = &it
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDeleteDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		target := *m.deleting
		m.deleting = nil
		m.busy = true
		ctx, g := m.ctx, m.groceries
		return m, run(func() (tea.Msg, error) {
			return itemDeletedMsg{target.ID}, g.Delete(ctx, target.UserID, target.ID)
		})
	case "n", "esc":
		m.deleting = nil
	}
	return m, nil
}

func (m Model) listView() string {
	header := fmt.Sprintf("%s %s   %s %s",
		accentStyle.Render("Sort:"), m.sortKey().Label(),
		accentStyle.Render("Filter:"), m.category())
	if len(m.items) == 0 && !m.busy {
		return header + "\n\n" + mutedStyle.Render("No items added yet.")
	}
	body := header + "\n" + m.list.View()
	if m.deleting != nil {
		body += "\n" + dialogStyle.Render(fmt.Sprintf(
			"%s\nAre you sure you want to delete '%s'?\n%s",
			titleStyle.Render("Delete Item"), m.deleting.Name, helpStyle.Render("y delete • n cancel")))
	}
	return body
}
