package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/assets"
	"page-builder/internal/builder/controller"
	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/service"
	"page-builder/internal/builder/tree"
)

// ============================================================
// Builder Handler
// ============================================================

type BuilderHandler struct {
	sessions *service.SessionManager
	reg      *registry.Registry
	store    assets.Store
	log      zerolog.Logger
}

func NewBuilderHandler(sessions *service.SessionManager, reg *registry.Registry, store assets.Store, log zerolog.Logger) *BuilderHandler {
	return &BuilderHandler{
		sessions: sessions,
		reg:      reg,
		store:    store,
		log:      log,
	}
}

type openSessionRequest struct {
	PageID string `json:"pageId"`
}

type sessionResponse struct {
	Session string           `json:"session"`
	State   controller.State `json:"state"`
}

type dropRequest struct {
	Type   models.ComponentType `json:"type"`
	GridID string               `json:"gridId"`
	Column int                  `json:"column"`
}

type orderRequest struct {
	IDs    []string `json:"ids"`
	GridID string   `json:"gridId"`
	Column int      `json:"column"`
}

type columnsRequest struct {
	Count int `json:"count"`
}

type attachRequest struct {
	Field   string `json:"field"`
	OwnerID string `json:"ownerId"`
	AssetID string `json:"assetId"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type viewRequest struct {
	Zoom *int            `json:"zoom"`
	Tab  *controller.Tab `json:"tab"`
}

type pageRequest struct {
	Title    *string              `json:"title"`
	Settings *models.PageSettings `json:"settings"`
}

// Registry отдаёт палитру компонентов.
func (h *BuilderHandler) Registry(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"components": h.reg.All()})
}

// ============================================================
// Session Lifecycle
// ============================================================

// OpenSession создаёт сессию редактора, опционально загружая страницу.
func (h *BuilderHandler) OpenSession(c fiber.Ctx) error {
	var req openSessionRequest
	if err := decodeOptional(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	s, err := h.sessions.Open(c.Context(), req.PageID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Locals("session", s.ID)

	var state controller.State
	_ = s.With(func(ctl *controller.Controller) error {
		state = ctl.State()
		return nil
	})
	return c.Status(http.StatusCreated).JSON(sessionResponse{Session: s.ID, State: state})
}

func (h *BuilderHandler) GetSession(c fiber.Ctx) error {
	return h.with(c, func(*controller.Controller) (fiber.Map, error) {
		return fiber.Map{}, nil
	})
}

func (h *BuilderHandler) CloseSession(c fiber.Ctx) error {
	sid := c.Params("sid")
	if !h.sessions.Close(sid) {
		return respondError(c, h.log, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sid))
	}
	return c.JSON(fiber.Map{"status": "closed"})
}

// ============================================================
// Gestures
// ============================================================

// AddComponent: drop из палитры на холст или в колонку grid.
func (h *BuilderHandler) AddComponent(c fiber.Ctx) error {
	var req dropRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	target := tree.TopLevel()
	if req.GridID != "" {
		target = tree.InColumn(req.GridID, req.Column)
	}

	c.Status(http.StatusCreated)
	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		rec, err := ctl.Drop(controller.DragPayload{Type: req.Type}, target)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"component": rec}, nil
	})
}

// UpdateComponent мержит тело запроса в data. Для неизвестного id applied:false.
func (h *BuilderHandler) UpdateComponent(c fiber.Ctx) error {
	var partial map[string]any
	if err := decode(c, &partial); err != nil {
		return respondError(c, h.log, err)
	}
	cid := c.Params("cid")

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		rec, ok := ctl.Update(cid, partial)
		if !ok {
			return fiber.Map{"applied": false}, nil
		}
		return fiber.Map{"applied": true, "component": rec}, nil
	})
}

func (h *BuilderHandler) RemoveComponent(c fiber.Ctx) error {
	cid := c.Params("cid")
	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		return fiber.Map{"applied": ctl.Remove(cid)}, nil
	})
}

// Reorder переставляет верхний уровень или, с gridId, одну колонку.
func (h *BuilderHandler) Reorder(c fiber.Ctx) error {
	var req orderRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		var err error
		if req.GridID != "" {
			err = ctl.ReorderColumn(req.GridID, req.Column, req.IDs)
		} else {
			err = ctl.Reorder(req.IDs)
		}
		if err != nil {
			return nil, err
		}
		return fiber.Map{}, nil
	})
}

func (h *BuilderHandler) SetColumns(c fiber.Ctx) error {
	var req columnsRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	cid := c.Params("cid")

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		rec, err := ctl.SetColumnCount(cid, req.Count)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"component": rec}, nil
	})
}

// AttachAsset ищет ассет владельца и пишет его URL в поле компонента.
func (h *BuilderHandler) AttachAsset(c fiber.Ctx) error {
	var req attachRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	list, err := h.store.List(c.Context(), req.OwnerID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var asset *models.Asset
	for i := range list {
		if list[i].ID == req.AssetID {
			asset = &list[i]
			break
		}
	}
	if asset == nil {
		return respondError(c, h.log, fmt.Errorf("%w: %s", assets.ErrNotFound, req.AssetID))
	}

	cid := c.Params("cid")
	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		return fiber.Map{"applied": ctl.AttachAsset(cid, req.Field, *asset)}, nil
	})
}

// Select выделяет запись. Пустой id снимает выделение.
func (h *BuilderHandler) Select(c fiber.Ctx) error {
	var req selectRequest
	if err := decodeOptional(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		if req.ID == "" {
			ctl.ClearSelection()
			return fiber.Map{"selected": false}, nil
		}
		return fiber.Map{"selected": ctl.Select(req.ID)}, nil
	})
}

func (h *BuilderHandler) Key(c fiber.Ctx) error {
	var req keyRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	key, ok := controller.ParseKey(req.Key)
	if !ok {
		return respondError(c, h.log, fmt.Errorf("%w: %q", controller.ErrUnknownKey, req.Key))
	}

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		changed, err := ctl.HandleKey(c.Context(), key)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"changed": changed}, nil
	})
}

func (h *BuilderHandler) SetView(c fiber.Ctx) error {
	var req viewRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		if req.Tab != nil {
			if err := ctl.SetTab(*req.Tab); err != nil {
				return nil, err
			}
		}
		if req.Zoom != nil {
			ctl.SetZoom(*req.Zoom)
		}
		return fiber.Map{}, nil
	})
}

func (h *BuilderHandler) UpdatePage(c fiber.Ctx) error {
	var req pageRequest
	if err := decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		if req.Title != nil {
			ctl.SetTitle(*req.Title)
		}
		if req.Settings != nil {
			ctl.UpdateSettings(*req.Settings)
		}
		return fiber.Map{}, nil
	})
}

// ============================================================
// Persistence & Rendering
// ============================================================

func (h *BuilderHandler) Save(c fiber.Ctx) error {
	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		id, err := ctl.Save(c.Context())
		if err != nil {
			return nil, err
		}
		return fiber.Map{"pageId": id}, nil
	})
}

func (h *BuilderHandler) Publish(c fiber.Ctx) error {
	return h.with(c, func(ctl *controller.Controller) (fiber.Map, error) {
		id, err := ctl.Publish(c.Context())
		if err != nil {
			return nil, err
		}
		return fiber.Map{"pageId": id}, nil
	})
}

// Render отдаёт элементы холста и полный HTML страницы в запрошенном режиме.
func (h *BuilderHandler) Render(c fiber.Ctx) error {
	mode, ok := render.ParseMode(c.Query("mode"))
	if !ok {
		return respondError(c, h.log, fmt.Errorf("%w: %q", render.ErrUnknownMode, c.Query("mode")))
	}

	sid := c.Params("sid")
	c.Locals("session", sid)

	var (
		elements []render.Element
		page     string
	)
	err := h.sessions.With(sid, func(ctl *controller.Controller) error {
		elements = ctl.RenderCanvasMode(mode)
		var err error
		page, err = ctl.RenderPageMode(mode)
		return err
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"mode": mode, "elements": elements, "html": page})
}

// with выполняет жест под замком сессии и добавляет к ответу свежий state.
func (h *BuilderHandler) with(c fiber.Ctx, fn func(*controller.Controller) (fiber.Map, error)) error {
	sid := c.Params("sid")
	c.Locals("session", sid)

	var out fiber.Map
	err := h.sessions.With(sid, func(ctl *controller.Controller) error {
		res, err := fn(ctl)
		if err != nil {
			return err
		}
		res["state"] = ctl.State()
		out = res
		return nil
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}
