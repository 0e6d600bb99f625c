package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/assets"
)

// ============================================================
// Assets Handler
// ============================================================

type AssetsHandler struct {
	store assets.Store
	log   zerolog.Logger
}

func NewAssetsHandler(store assets.Store, log zerolog.Logger) *AssetsHandler {
	return &AssetsHandler{store: store, log: log}
}

func (h *AssetsHandler) List(c fiber.Ctx) error {
	list, err := h.store.List(c.Context(), c.Params("owner"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"assets": list})
}

// Upload принимает multipart поле "file".
func (h *AssetsHandler) Upload(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.log, errMissingFile)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer src.Close()

	asset, err := h.store.Upload(c.Context(), c.Params("owner"), fileHeader.Filename, src)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Info().Str("owner", c.Params("owner")).Str("asset", asset.ID).Int64("size", asset.Size).Msg("asset uploaded")
	return c.Status(http.StatusCreated).JSON(asset)
}

func (h *AssetsHandler) Delete(c fiber.Ctx) error {
	if err := h.store.Delete(c.Context(), c.Params("owner"), c.Params("assetId")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
