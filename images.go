package antlia

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/media"
)

type mediaError struct {
	Error string `json:"error"`
}

// handleMediaUpload stores an editor image upload and answers with its
// public URL.
func (a *App) handleMediaUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, mediaError{Error: "Tidak ada file gambar"})
	}
	if file.Size > media.MaxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, mediaError{Error: "File terlalu besar (maks 10MB)"})
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := a.uploader.Upload(c.Request().Context(), src, file.Filename)
	switch {
	case errors.Is(err, media.ErrInvalidImage):
		return c.JSON(http.StatusBadRequest, mediaError{Error: "Gambar tidak valid"})
	case err != nil:
		c.Logger().Errorf("media upload: %v", err)
		return c.JSON(http.StatusBadGateway, mediaError{Error: "Gagal mengunggah gambar"})
	}
	return c.JSON(http.StatusCreated, img)
}

func (a *App) handleMediaDelete(c echo.Context) error {
	err := a.uploader.Delete(c.Request().Context(), c.Param("*"))
	switch {
	case errors.Is(err, media.ErrInvalidKey):
		return c.JSON(http.StatusBadRequest, mediaError{Error: "Kunci tidak valid"})
	case errors.Is(err, media.ErrNotFound):
		return c.JSON(http.StatusNotFound, mediaError{Error: "Gambar tidak ditemukan"})
	case err != nil:
		c.Logger().Errorf("media delete: %v", err)
		return c.JSON(http.StatusBadGateway, mediaError{Error: "Gagal menghapus gambar"})
	}
	return c.NoContent(http.StatusNoContent)
}

// registerAssets serves the embedded front-end assets, the user's static
// directory and locally stored uploads.
func (a *App) registerAssets() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.StaticFS("/public/antlia", embeddedFS)

	if _, err := os.Stat(a.staticDir); err == nil {
		e.Static("/public", a.staticDir)
	}
	if local, ok := a.mediaStore.(*media.LocalStorage); ok {
		e.Static(mediaPath, local.Dir())
	}
}
