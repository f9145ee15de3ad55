package antlia

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/contact"
)

const qrSize = 256

var contactErrors = map[error]string{
	contact.ErrMissingField: "Mohon lengkapi semua kolom yang wajib diisi.",
	contact.ErrInvalidEmail: "Alamat email tidak valid.",
}

func (a *App) handleContact(c echo.Context) error {
	form := ContactForm{Message: contact.Message{Subject: c.QueryParam("layanan")}}
	return Render(c, a.Views.Contact(a.page(c, "Kontak", ""), form))
}

// handleContactSubmit validates the form and hands the visitor over to a
// prefilled WhatsApp chat.
func (a *App) handleContactSubmit(c echo.Context) error {
	if !a.contactLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Terlalu banyak pesan. Coba lagi nanti.")
	}
	var msg contact.Message
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		form := ContactForm{Message: msg, Error: contactErrorText(err)}
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Contact(a.page(c, "Kontak", ""), form))
	}
	return c.Redirect(http.StatusSeeOther, contact.WhatsAppURL(a.Config.WhatsAppNumber, msg.Text()))
}

func contactErrorText(err error) string {
	for sentinel, text := range contactErrors {
		if errors.Is(err, sentinel) {
			return text
		}
	}
	return "Pesan terlalu panjang."
}

func (a *App) handleContactQR(c echo.Context) error {
	png, err := contact.QRCode(a.WhatsAppLink(), qrSize)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
