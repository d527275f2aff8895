package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// Ticket QR codes carry the booking id as plain text: the door scanner posts
// the decoded string straight back as the check-in code.

const defaultSize = 256

var ErrEmptyPayload = errors.New("qr payload is empty")

type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: defaultSize}
}

// Encode renders the booking id as a PNG QR code.
func (g *Generator) Encode(bookingID string) ([]byte, error) {
	if bookingID == "" {
		return nil, ErrEmptyPayload
	}
	return qrcode.Encode(bookingID, qrcode.Medium, g.size)
}
