package models

import "time"

const (
	VoucherFixed      = "FIXED"
	VoucherPercentage = "PERCENTAGE"
)

type Voucher struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Amount      float64    `json:"amount"`
	Type        string     `json:"type"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	Active      bool       `json:"active"`
	UsageLimit  int        `json:"usage_limit"`
	UsageCount  int        `json:"usage_count"`
	MinPurchase float64    `json:"min_purchase"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Usable reports whether the voucher can currently be applied: active,
// inside its validity window, and under its usage limit.
func (v *Voucher) Usable(now time.Time) bool {
	if !v.Active {
		return false
	}
	if now.Before(v.ValidFrom) {
		return false
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return false
	}
	if v.UsageLimit > 0 && v.UsageCount >= v.UsageLimit {
		return false
	}
	return true
}

// Discount returns the amount this voucher takes off the given purchase.
func (v *Voucher) Discount(purchaseAmount float64) float64 {
	if v.Type == VoucherPercentage {
		return v.Amount / 100 * purchaseAmount
	}
	return v.Amount
}
