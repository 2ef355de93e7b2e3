package tui

import (
	"errors"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dukerupert/smartgrocery/internal/model"
)

var errQuantity = errors.New("quantity must be a whole number")

// Field order of the add/edit form.
const (
	fieldName = iota
	fieldCategory
	fieldExpiration
	fieldQuantity
	fieldBrand
	fieldBarcode
	fieldDescription
	fieldDetails
)

func newItemForm(title string) form {
	return newForm(title,
		field{label: "Item Name", placeholder: "Milk"},
		field{label: "Category", placeholder: "blank to detect (e.g., Dairy, Fruits)"},
		field{label: "Expiration Date", placeholder: "YYYY-MM-DD"},
		field{label: "Quantity", placeholder: "1"},
		field{label: "Brand"},
		field{label: "Barcode"},
		field{label: "Description", placeholder: model.DefaultDescription},
		field{label: "Details"},
	)
}

// openItemForm shows the add form, or the edit form when editing is set.
// draft prefills the fields.
func (m Model) openItemForm(editing *model.GroceryItem, draft model.GroceryItem, back screen) Model {
	title := "Add Grocery Item"
	if editing != nil {
		title = "Edit Item"
	}
	f := newItemForm(title)
	f.set(fieldName, draft.Name)
	f.set(fieldCategory, draft.Category)
	f.set(fieldExpiration, draft.ExpirationDate)
	if draft.Quantity > 0 {
		f.set(fieldQuantity, strconv.Itoa(draft.Quantity))
	}
	f.set(fieldBrand, draft.Brand)
	f.set(fieldBarcode, draft.Barcode)
	if draft.Description != model.DefaultDescription {
		f.set(fieldDescription, draft.Description)
	}
	f.set(fieldDetails, draft.Details)

	m.itemForm = f
	m.editing = editing
	m.formBack = back
	m.goTo(screenItemForm, false)
	return m
}

// itemFromForm builds the item to save from the form fields.
func (m Model) itemFromForm() (model.GroceryItem, error) {
	item := model.GroceryItem{}
	if m.editing != nil {
		item = *m.editing
	}
	item.UserID = m.userID()
	item.Name = m.itemForm.value(fieldName)
	item.Category = m.itemForm.value(fieldCategory)
	item.ExpirationDate = m.itemForm.value(fieldExpiration)
	item.Brand = m.itemForm.value(fieldBrand)
	item.Barcode = m.itemForm.value(fieldBarcode)
	item.Description = m.itemForm.value(fieldDescription)
	item.Details = m.itemForm.value(fieldDetails)

	item.Quantity = 1
	if q := m.itemForm.value(fieldQuantity); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return item, errQuantity
		}
		item.Quantity = n
	}
	return item, nil
}

func (m Model) updateItemForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case itemSavedMsg:
		m.busy = false
		verb := "added"
		if m.editing != nil {
			verb = "updated"
		}
		m.editing = nil
		m.goTo(screenList, false)
		m.status = "Item " + verb + ": " + msg.item.Name
		return m, m.loadItemsCmd()
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.editing = nil
			m.goTo(m.formBack, false)
			if m.formBack == screenList {
				return m, m.loadItemsCmd()
			}
			return m, nil
		case "ctrl+s":
			return m.saveItem()
		}
	}

	f, cmd, submit := m.itemForm.update(msg)
	m.itemForm = f
	if submit {
		return m.saveItem()
	}
	return m, cmd
}

func (m Model) saveItem() (tea.Model, tea.Cmd) {
	item, err := m.itemFromForm()
	if err != nil {
		m.err = err.Error()
		return m, nil
	}
	ctx, g, editing := m.ctx, m.groceries, m.editing != nil
	m.busy = true
	m.err = ""
	return m, run(func() (tea.Msg, error) {
		var saved *model.GroceryItem
		var err error
		if editing {
			saved, err = g.Update(ctx, item)
		} else {
			saved, err = g.Add(ctx, item)
		}
		return itemSavedMsg{saved}, err
	})
}
