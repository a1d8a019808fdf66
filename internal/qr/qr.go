// Package qr renders the QR code printed onto patient cards.
package qr

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize matches the pixel size used on the printed card.
const DefaultSize = 220

// PatientURL builds the public portal address embedded into the QR code.
func PatientURL(appURL, accessToken string) string {
	return strings.TrimRight(appURL, "/") + "/patient/" + accessToken
}

// Image renders text as a PNG QR code of the given pixel size. Size values
// below 1 fall back to DefaultSize.
func Image(text string, size int) ([]byte, error) {
	if size < 1 {
		size = DefaultSize
	}
	return qrcode.Encode(text, qrcode.Medium, size)
}
