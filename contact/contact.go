// Package contact turns the contact form into a prefilled WhatsApp chat.
package contact

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode"

	"github.com/skip2/go-qrcode"
)

// ErrMissingField reports a required form field left empty.
var ErrMissingField = errors.New("contact: missing field")

// ErrInvalidEmail reports an email address that does not parse.
var ErrInvalidEmail = errors.New("contact: invalid email")

// Field length limits.
const (
	maxFieldLen   = 200
	maxMessageLen = 4000
)

// Message is one contact form submission.
type Message struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Phone   string `form:"phone"`
	Company string `form:"company"`
	Subject string `form:"subject"`
	Message string `form:"message"`
}

// Normalize trims every field.
func (m *Message) Normalize() {
	for _, f := range []*string{&m.Name, &m.Email, &m.Phone, &m.Company, &m.Subject, &m.Message} {
		*f = strings.TrimSpace(*f)
	}
}

// Validate checks required fields and lengths. Company is optional.
func (m Message) Validate() error {
	required := []struct {
		name, value string
	}{
		{"name", m.Name},
		{"email", m.Email},
		{"phone", m.Phone},
		{"subject", m.Subject},
		{"message", m.Message},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return ErrInvalidEmail
	}
	for _, v := range []string{m.Name, m.Email, m.Phone, m.Company, m.Subject} {
		if len(v) > maxFieldLen {
			return fmt.Errorf("contact: field exceeds %d characters", maxFieldLen)
		}
	}
	if len(m.Message) > maxMessageLen {
		return fmt.Errorf("contact: message exceeds %d characters", maxMessageLen)
	}
	return nil
}

// Text composes the chat message sent to the sales line.
func (m Message) Text() string {
	company := m.Company
	if company == "" {
		company = "tidak disebutkan"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Halo, saya %s dari %s.\n\n", m.Name, company)
	fmt.Fprintf(&b, "Saya tertarik dengan layanan: %s\n\n", m.Subject)
	b.WriteString("Detail kontak saya:\n")
	fmt.Fprintf(&b, "Email: %s\n", m.Email)
	fmt.Fprintf(&b, "Telepon: %s\n\n", m.Phone)
	fmt.Fprintf(&b, "Pesan:\n%s", m.Message)
	return b.String()
}

// Number keeps only the digits of a phone number.
func Number(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// ChatLink is the bare wa.me link for number.
func ChatLink(number string) string {
	return "https://wa.me/" + Number(number)
}

// WhatsAppURL is the wa.me link that opens a chat prefilled with text.
func WhatsAppURL(number, text string) string {
	return ChatLink(number) + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// QRCode encodes content as a PNG QR code of size x size pixels.
func QRCode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
