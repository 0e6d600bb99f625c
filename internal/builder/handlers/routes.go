package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// Handlers: всё, что монтируется в приложение.
type Handlers struct {
	Health  *HealthHandler
	Builder *BuilderHandler
	Pages   *PagesHandler
	Assets  *AssetsHandler
}

// Register вешает маршруты на app.
func Register(app *fiber.App, h Handlers) {
	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", h.Health.LivenessProbe)
	app.Get("/health/ready", h.Health.ReadinessProbe)
	app.Get("/health/startup", h.Health.StartupProbe)

	api := app.Group("/api/v1")

	// ============================================================
	// Editor Session Routes
	// ============================================================

	api.Get("/registry", h.Builder.Registry)

	api.Post("/sessions", h.Builder.OpenSession)
	api.Get("/sessions/:sid", h.Builder.GetSession)
	api.Delete("/sessions/:sid", h.Builder.CloseSession)

	api.Post("/sessions/:sid/components", h.Builder.AddComponent)
	api.Patch("/sessions/:sid/components/:cid", h.Builder.UpdateComponent)
	api.Delete("/sessions/:sid/components/:cid", h.Builder.RemoveComponent)
	api.Put("/sessions/:sid/components/:cid/columns", h.Builder.SetColumns)
	api.Put("/sessions/:sid/components/:cid/asset", h.Builder.AttachAsset)
	api.Put("/sessions/:sid/order", h.Builder.Reorder)

	api.Post("/sessions/:sid/select", h.Builder.Select)
	api.Post("/sessions/:sid/keys", h.Builder.Key)
	api.Put("/sessions/:sid/view", h.Builder.SetView)
	api.Put("/sessions/:sid/page", h.Builder.UpdatePage)
	api.Post("/sessions/:sid/save", h.Builder.Save)
	api.Post("/sessions/:sid/publish", h.Builder.Publish)
	api.Get("/sessions/:sid/render", h.Builder.Render)

	// ============================================================
	// Page & Asset Routes
	// ============================================================

	api.Get("/pages", h.Pages.List)
	api.Get("/pages/:id", h.Pages.Get)
	api.Get("/pages/:id/preview", h.Pages.Preview)

	api.Get("/owners/:owner/assets", h.Assets.List)
	api.Post("/owners/:owner/assets", h.Assets.Upload)
	api.Delete("/owners/:owner/assets/:assetId", h.Assets.Delete)
}
