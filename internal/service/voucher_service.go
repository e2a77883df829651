package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/storage"
)

type VoucherService struct {
	vouchers storage.VoucherStore
	log      *logger.Logger
}

func NewVoucherService(vouchers storage.VoucherStore) *VoucherService {
	return &VoucherService{
		vouchers: vouchers,
		log:      logger.New("voucher-service"),
	}
}

type CreateVoucherInput struct {
	Code        string
	Title       string
	Description string
	Amount      float64
	Type        string
	ValidFrom   time.Time
	ValidUntil  *time.Time
	UsageLimit  int
	MinPurchase float64
}

// Create registers a new voucher. Codes are stored uppercase so lookups
// are case-insensitive.
func (s *VoucherService) Create(ctx context.Context, adminID string, input CreateVoucherInput) (*models.Voucher, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" || input.Title == "" {
		return nil, fmt.Errorf("code and title are required")
	}
	if err := validateDiscount(input.Type, input.Amount); err != nil {
		return nil, err
	}

	existing, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateCode
	}

	validFrom := input.ValidFrom
	if validFrom.IsZero() {
		validFrom = time.Now()
	}

	voucher := &models.Voucher{
		ID:          uuid.New().String(),
		Code:        code,
		Title:       input.Title,
		Description: input.Description,
		Amount:      input.Amount,
		Type:        input.Type,
		ValidFrom:   validFrom,
		ValidUntil:  input.ValidUntil,
		Active:      true,
		UsageLimit:  input.UsageLimit,
		MinPurchase: input.MinPurchase,
		CreatedBy:   adminID,
	}

	if err := s.vouchers.Create(ctx, voucher); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	s.log.Info("Created voucher %s (%s)", voucher.Code, voucher.ID)
	return voucher, nil
}

func (s *VoucherService) Get(ctx context.Context, id string) (*models.Voucher, error) {
	voucher, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher == nil {
		return nil, ErrNotFound
	}
	return voucher, nil
}

func (s *VoucherService) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Voucher, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.vouchers.List(ctx, activeOnly, limit, offset)
}

type UpdateVoucherInput struct {
	Title       *string
	Description *string
	Amount      *float64
	Type        *string
	ValidUntil  *time.Time
	Active      *bool
	UsageLimit  *int
	MinPurchase *float64
}

// Update applies a partial update. Nil fields are left unchanged.
func (s *VoucherService) Update(ctx context.Context, id string, input UpdateVoucherInput) (*models.Voucher, error) {
	voucher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		voucher.Title = *input.Title
	}
	if input.Description != nil {
		voucher.Description = *input.Description
	}
	if input.Amount != nil {
		voucher.Amount = *input.Amount
	}
	if input.Type != nil {
		voucher.Type = *input.Type
	}
	if input.ValidUntil != nil {
		voucher.ValidUntil = input.ValidUntil
	}
	if input.Active != nil {
		voucher.Active = *input.Active
	}
	if input.UsageLimit != nil {
		voucher.UsageLimit = *input.UsageLimit
	}
	if input.MinPurchase != nil {
		voucher.MinPurchase = *input.MinPurchase
	}

	if err := validateDiscount(voucher.Type, voucher.Amount); err != nil {
		return nil, err
	}

	if err := s.vouchers.Update(ctx, voucher); err != nil {
		return nil, err
	}
	return voucher, nil
}

func (s *VoucherService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.vouchers.Delete(ctx, id)
}

type ValidationResult struct {
	Voucher        *models.Voucher `json:"voucher"`
	Discount       float64         `json:"discount"`
	PayableAmount  float64         `json:"payable_amount"`
	PurchaseAmount float64         `json:"purchase_amount"`
}

// Validate checks whether a voucher code applies to a purchase and
// computes the discount without consuming a use.
func (s *VoucherService) Validate(ctx context.Context, code string, purchaseAmount float64) (*ValidationResult, error) {
	if purchaseAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	voucher, err := s.vouchers.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if voucher == nil {
		return nil, ErrNotFound
	}
	if !voucher.Usable(time.Now()) {
		return nil, ErrVoucherNotUsable
	}
	if purchaseAmount < voucher.MinPurchase {
		return nil, ErrMinPurchase
	}

	discount := voucher.Discount(purchaseAmount)
	if discount > purchaseAmount {
		discount = purchaseAmount
	}

	return &ValidationResult{
		Voucher:        voucher,
		Discount:       discount,
		PayableAmount:  purchaseAmount - discount,
		PurchaseAmount: purchaseAmount,
	}, nil
}

// Redeem validates and then consumes one use of the voucher.
func (s *VoucherService) Redeem(ctx context.Context, code string, purchaseAmount float64) (*ValidationResult, error) {
	result, err := s.Validate(ctx, code, purchaseAmount)
	if err != nil {
		return nil, err
	}

	if err := s.vouchers.IncrementUsage(ctx, result.Voucher.ID); err != nil {
		return nil, ErrVoucherNotUsable
	}
	result.Voucher.UsageCount++

	s.log.Info("Redeemed voucher %s for amount %.2f", result.Voucher.Code, purchaseAmount)
	return result, nil
}

func validateDiscount(discountType string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidDiscount
	}
	switch discountType {
	case models.VoucherFixed:
	case models.VoucherPercentage:
		if amount > 100 {
			return ErrInvalidDiscount
		}
	default:
		return ErrInvalidDiscount
	}
	return nil
}
