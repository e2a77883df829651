package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/middleware"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/service"
)

// maxImportSize caps statement uploads at 10 MiB.
const maxImportSize = 10 << 20

type ExpenseHandler struct {
	expenses *service.ExpenseService
	log      *logger.Logger
}

func NewExpenseHandler(expenses *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenses: expenses,
		log:      logger.New("expense-handler"),
	}
}

type AddExpenseRequest struct {
	Date        string  `json:"date,omitempty"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Amount      float64 `json:"amount"`
}

func (h *ExpenseHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	expense, err := h.expenses.Add(r.Context(), middleware.GetUserID(r.Context()), service.AddExpenseInput{
		Date:        date,
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, expense)
}

type ListExpensesResponse struct {
	Expenses []*models.Expense `json:"expenses"`
	Count    int               `json:"count"`
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.ExpenseFilter{
		Category: r.URL.Query().Get("category"),
	}

	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		filter.From = &parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		filter.To = &parsed
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	expenses, err := h.expenses.List(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ListExpensesResponse{
		Expenses: expenses,
		Count:    len(expenses),
	})
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	expense, err := h.expenses.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "entry deleted"})
}

func (h *ExpenseHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.expenses.Balance(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

// Import accepts a multipart upload with the statement under the "file"
// field.
func (h *ExpenseHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	summary, err := h.expenses.Import(r.Context(), middleware.GetUserID(r.Context()), header.Filename, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, summary)
}
