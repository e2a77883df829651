package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/middleware"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/qrcode"
	"github.com/himalai/expense-service/internal/service"
)

type VoucherHandler struct {
	vouchers *service.VoucherService
	log      *logger.Logger
}

func NewVoucherHandler(vouchers *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{
		vouchers: vouchers,
		log:      logger.New("voucher-handler"),
	}
}

type CreateVoucherRequest struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Amount      float64    `json:"amount"`
	Type        string     `json:"type"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	UsageLimit  int        `json:"usage_limit,omitempty"`
	MinPurchase float64    `json:"min_purchase,omitempty"`
}

func (h *VoucherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := service.CreateVoucherInput{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		ValidUntil:  req.ValidUntil,
		UsageLimit:  req.UsageLimit,
		MinPurchase: req.MinPurchase,
	}
	if req.ValidFrom != nil {
		input.ValidFrom = *req.ValidFrom
	}

	voucher, err := h.vouchers.Create(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, voucher)
}

type ListVouchersResponse struct {
	Vouchers []*models.Voucher `json:"vouchers"`
	Count    int               `json:"count"`
}

func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	activeOnly := r.URL.Query().Get("active") == "true"

	vouchers, err := h.vouchers.List(r.Context(), activeOnly, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ListVouchersResponse{Vouchers: vouchers, Count: len(vouchers)})
}

func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	voucher, err := h.vouchers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, voucher)
}

type UpdateVoucherRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	Type        *string    `json:"type,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	Active      *bool      `json:"active,omitempty"`
	UsageLimit  *int       `json:"usage_limit,omitempty"`
	MinPurchase *float64   `json:"min_purchase,omitempty"`
}

func (h *VoucherHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	voucher, err := h.vouchers.Update(r.Context(), r.PathValue("id"), service.UpdateVoucherInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		ValidUntil:  req.ValidUntil,
		Active:      req.Active,
		UsageLimit:  req.UsageLimit,
		MinPurchase: req.MinPurchase,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, voucher)
}

func (h *VoucherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.vouchers.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "voucher deleted"})
}

type ApplyVoucherRequest struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

func (h *VoucherHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ApplyVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.vouchers.Validate(r.Context(), req.Code, req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *VoucherHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req ApplyVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.vouchers.Redeem(r.Context(), req.Code, req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// QR serves the voucher code as a PNG QR image for print material.
func (h *VoucherHandler) QR(w http.ResponseWriter, r *http.Request) {
	voucher, err := h.vouchers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}

	png, err := qrcode.GeneratePNG(voucher.Code, size)
	if err != nil {
		h.log.Error("Failed to render QR for voucher %s: %v", voucher.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
