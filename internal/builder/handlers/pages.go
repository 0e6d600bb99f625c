package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
)

// ============================================================
// Pages Handler
// ============================================================

// PagesHandler отдаёт сохранённые страницы без открытия сессии.
type PagesHandler struct {
	repo     repository.PageRepository
	renderer *render.Dispatcher
	log      zerolog.Logger
}

func NewPagesHandler(repo repository.PageRepository, renderer *render.Dispatcher, log zerolog.Logger) *PagesHandler {
	return &PagesHandler{
		repo:     repo,
		renderer: renderer,
		log:      log,
	}
}

func (h *PagesHandler) List(c fiber.Ctx) error {
	pages, err := h.repo.List(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"pages": pages})
}

func (h *PagesHandler) Get(c fiber.Ctx) error {
	doc, err := h.repo.Load(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(doc)
}

// Preview рендерит сохранённую страницу так, как её видит посетитель.
func (h *PagesHandler) Preview(c fiber.Ctx) error {
	doc, err := h.repo.Load(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	html, err := h.renderer.RenderPage(doc, render.ModePreview)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(html)
}
