package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/model"
)

type GroceryHandler struct {
	service *grocery.Service
	logger  *slog.Logger
}

func NewGroceryHandler(svc *grocery.Service, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{service: svc, logger: logger}
}

type groceryItemRequest struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	Details        string `json:"details"`
	Quantity       int    `json:"quantity"`
	Barcode        string `json:"barcode"`
	Brand          string `json:"brand"`
	Category       string `json:"category"`
	ExpirationDate string `json:"expiration_date"`
}

func (req groceryItemRequest) item(userID int64) model.GroceryItem {
	return model.GroceryItem{
		ID:             req.ID,
		UserID:         userID,
		Name:           req.Name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		Details:        req.Details,
		Quantity:       req.Quantity,
		Barcode:        req.Barcode,
		Brand:          req.Brand,
		Category:       req.Category,
		ExpirationDate: req.ExpirationDate,
	}
}

func (h *GroceryHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, grocery.ErrNameRequired), errors.Is(err, grocery.ErrInvalidExpiration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, grocery.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func (h *GroceryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Items(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, "list items", err)
		return
	}

	q := r.URL.Query()
	items = grocery.Filter(items, q.Get("category"))
	items = grocery.Sort(items, grocery.ParseSortKey(q.Get("sort")))
	if items == nil {
		items = []model.GroceryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateItem inserts a new item, or replaces the caller's item when the
// body carries its id.
func (h *GroceryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req groceryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.service.Add(r.Context(), req.item(auth.UserID(r.Context())))
	if err != nil {
		h.writeServiceError(w, "create item", err)
		return
	}

	status := http.StatusCreated
	if req.ID != 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, item)
}

func (h *GroceryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.service.Item(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *GroceryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req groceryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = id

	item, err := h.service.Update(r.Context(), req.item(auth.UserID(r.Context())))
	if err != nil {
		h.writeServiceError(w, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *GroceryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		h.writeServiceError(w, "delete item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GroceryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	sorts := make([]map[string]string, 0, len(grocery.SortKeys))
	for _, k := range grocery.SortKeys {
		sorts = append(sorts, map[string]string{"key": string(k), "label": k.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": grocery.Categories,
		"sorts":      sorts,
	})
}
