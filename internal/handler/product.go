package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/model"
	"github.com/dukerupert/smartgrocery/internal/scanner"
)

const maxScanUpload = 10 << 20

type ProductHandler struct {
	service *grocery.Service
	decoder scanner.Decoder
	logger  *slog.Logger
}

func NewProductHandler(svc *grocery.Service, decoder scanner.Decoder, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, decoder: decoder, logger: logger}
}

func (h *ProductHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := r.PathValue("barcode")
	if !grocery.IsBarcode(barcode) {
		writeError(w, http.StatusBadRequest, "barcode must contain only digits")
		return
	}

	resp := h.service.FetchProduct(r.Context(), barcode)
	if !resp.Found() {
		writeError(w, http.StatusNotFound, grocery.MsgProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) SearchByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	resp := h.service.SearchProductByName(r.Context(), name)
	if resp == nil || len(resp.Products) == 0 {
		writeError(w, http.StatusNotFound, grocery.MsgNoProducts)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Lookup is the combined search box: digits are a barcode, anything else a
// product name.
func (h *ProductHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if errors.Is(err, grocery.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !res.Found() {
		writeError(w, http.StatusNotFound, res.Message)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type scanResponse struct {
	Barcode string                 `json:"barcode"`
	Product *model.ProductResponse `json:"product,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// Scan decodes the first barcode found in the uploaded images and looks the
// product up. Each "image" part is a frame, and an animated GIF contributes
// all of its frames, analyzed in upload order.
func (h *ProductHandler) Scan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScanUpload)
	if err := r.ParseMultipartForm(maxScanUpload); err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["image"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}

	var frames []scanner.Frame
	for _, part := range parts {
		fs, err := readPart(part)
		if err != nil {
			scanner.CloseFrames(frames)
			h.logger.Warn("scan read", "file", part.Filename, "error", err)
			writeError(w, http.StatusBadRequest, "could not read image")
			return
		}
		frames = append(frames, fs...)
	}

	barcode, err := scanner.DecodeFrames(r.Context(), h.decoder, h.logger, frames)
	if errors.Is(err, scanner.ErrNoBarcode) {
		writeError(w, http.StatusUnprocessableEntity, "No barcode found.")
		return
	}
	if err != nil {
		h.logger.Warn("scan decode", "error", err)
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}

	out := scanResponse{Barcode: barcode}
	if resp := h.service.FetchProduct(r.Context(), barcode); resp.Found() {
		out.Product = resp
	} else {
		out.Message = grocery.MsgProductNotFound
	}
	writeJSON(w, http.StatusOK, out)
}

func readPart(part *multipart.FileHeader) ([]scanner.Frame, error) {
	f, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scanner.ReadFrames(f)
}
