// Package qrcode renders voucher codes as QR images for in-store
// redemption.
package qrcode

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// GeneratePNG encodes the given voucher code as a QR PNG.
func GeneratePNG(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}

	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}
