package service

import (
	"context"
	"testing"
	"time"

	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/storage"
)

func newTestVoucherService(t *testing.T) *VoucherService {
	t.Helper()
	return NewVoucherService(storage.NewMemoryStore().Vouchers)
}

func createVoucher(t *testing.T, svc *VoucherService, input CreateVoucherInput) *models.Voucher {
	t.Helper()
	voucher, err := svc.Create(context.Background(), "admin-1", input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return voucher
}

func TestCreateVoucherUppercasesCode(t *testing.T) {
	svc := newTestVoucherService(t)

	voucher := createVoucher(t, svc, CreateVoucherInput{
		Code:   "welcome10",
		Title:  "Welcome discount",
		Amount: 10,
		Type:   models.VoucherPercentage,
	})
	if voucher.Code != "WELCOME10" {
		t.Errorf("Expected uppercase code, got %q", voucher.Code)
	}
	if !voucher.Active {
		t.Error("Expected new voucher to be active")
	}
}

func TestCreateVoucherRejectsDuplicateCode(t *testing.T) {
	svc := newTestVoucherService(t)
	createVoucher(t, svc, CreateVoucherInput{Code: "SAVE50", Title: "x", Amount: 50, Type: models.VoucherFixed})

	_, err := svc.Create(context.Background(), "admin-1", CreateVoucherInput{
		Code: "save50", Title: "y", Amount: 20, Type: models.VoucherFixed,
	})
	if err != ErrDuplicateCode {
		t.Errorf("Expected ErrDuplicateCode, got %v", err)
	}
}

func TestCreateVoucherValidatesDiscount(t *testing.T) {
	svc := newTestVoucherService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		amount float64
		typ    string
	}{
		{"zero amount", 0, models.VoucherFixed},
		{"negative amount", -5, models.VoucherFixed},
		{"percentage over 100", 150, models.VoucherPercentage},
		{"unknown type", 10, "BOGOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "admin-1", CreateVoucherInput{
				Code: "X" + tt.name, Title: "x", Amount: tt.amount, Type: tt.typ,
			})
			if err != ErrInvalidDiscount {
				t.Errorf("Expected ErrInvalidDiscount, got %v", err)
			}
		})
	}
}

func TestValidateFixedAndPercentage(t *testing.T) {
	svc := newTestVoucherService(t)
	ctx := context.Background()

	createVoucher(t, svc, CreateVoucherInput{Code: "FLAT100", Title: "x", Amount: 100, Type: models.VoucherFixed})
	createVoucher(t, svc, CreateVoucherInput{Code: "PC25", Title: "x", Amount: 25, Type: models.VoucherPercentage})

	fixed, err := svc.Validate(ctx, "flat100", 500)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if fixed.Discount != 100 || fixed.PayableAmount != 400 {
		t.Errorf("Expected discount 100 payable 400, got %v / %v", fixed.Discount, fixed.PayableAmount)
	}

	pct, err := svc.Validate(ctx, "PC25", 200)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if pct.Discount != 50 || pct.PayableAmount != 150 {
		t.Errorf("Expected discount 50 payable 150, got %v / %v", pct.Discount, pct.PayableAmount)
	}
}

func TestValidateCapsDiscountAtPurchase(t *testing.T) {
	svc := newTestVoucherService(t)
	createVoucher(t, svc, CreateVoucherInput{Code: "BIG", Title: "x", Amount: 500, Type: models.VoucherFixed})

	result, err := svc.Validate(context.Background(), "BIG", 200)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Discount != 200 || result.PayableAmount != 0 {
		t.Errorf("Expected discount capped at purchase amount, got %v / %v", result.Discount, result.PayableAmount)
	}
}

func TestValidateMinPurchase(t *testing.T) {
	svc := newTestVoucherService(t)
	createVoucher(t, svc, CreateVoucherInput{
		Code: "MIN500", Title: "x", Amount: 50, Type: models.VoucherFixed, MinPurchase: 500,
	})

	if _, err := svc.Validate(context.Background(), "MIN500", 499); err != ErrMinPurchase {
		t.Errorf("Expected ErrMinPurchase, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), "MIN500", 500); err != nil {
		t.Errorf("Expected voucher to apply at the minimum, got %v", err)
	}
}

func TestValidateInactiveAndExpired(t *testing.T) {
	svc := newTestVoucherService(t)
	ctx := context.Background()

	inactive := createVoucher(t, svc, CreateVoucherInput{Code: "OFF", Title: "x", Amount: 10, Type: models.VoucherFixed})
	active := false
	if _, err := svc.Update(ctx, inactive.ID, UpdateVoucherInput{Active: &active}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := svc.Validate(ctx, "OFF", 100); err != ErrVoucherNotUsable {
		t.Errorf("Expected ErrVoucherNotUsable for inactive voucher, got %v", err)
	}

	past := time.Now().Add(-time.Hour)
	createVoucher(t, svc, CreateVoucherInput{
		Code: "EXPIRED", Title: "x", Amount: 10, Type: models.VoucherFixed,
		ValidFrom: time.Now().Add(-2 * time.Hour), ValidUntil: &past,
	})
	if _, err := svc.Validate(ctx, "EXPIRED", 100); err != ErrVoucherNotUsable {
		t.Errorf("Expected ErrVoucherNotUsable for expired voucher, got %v", err)
	}

	if _, err := svc.Validate(ctx, "NOPE", 100); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestRedeemConsumesUsage(t *testing.T) {
	svc := newTestVoucherService(t)
	ctx := context.Background()

	createVoucher(t, svc, CreateVoucherInput{
		Code: "ONCE", Title: "x", Amount: 10, Type: models.VoucherFixed, UsageLimit: 1,
	})

	first, err := svc.Redeem(ctx, "ONCE", 100)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if first.Voucher.UsageCount != 1 {
		t.Errorf("Expected usage count 1, got %d", first.Voucher.UsageCount)
	}

	if _, err := svc.Redeem(ctx, "ONCE", 100); err != ErrVoucherNotUsable {
		t.Errorf("Expected ErrVoucherNotUsable after limit reached, got %v", err)
	}
}
