package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
	"page-builder/internal/builder/tree"
)

// ============================================================
// View State
// ============================================================

type Tab string

const (
	TabComponents Tab = "components"
	TabSettings   Tab = "settings"
	TabPage       Tab = "page"
)

const (
	MinZoom     = 25
	MaxZoom     = 200
	ZoomStep    = 10
	DefaultZoom = 100
)

var (
	ErrSaveFailed = errors.New("save failed")
	ErrLoadFailed = errors.New("load failed")
	ErrUnknownTab = errors.New("unknown tab")
	ErrUnknownKey = errors.New("unknown key")
)

// DragPayload: то, что несёт drag из палитры.
type DragPayload struct {
	Type models.ComponentType `json:"type"`
}

// State: снимок для клиента.
type State struct {
	PageID     string              `json:"page_id,omitempty"`
	Title      string              `json:"title"`
	Settings   models.PageSettings `json:"settings"`
	Published  bool                `json:"published"`
	Selected   string              `json:"selected,omitempty"`
	Zoom       int                 `json:"zoom"`
	Tab        Tab                 `json:"tab"`
	Mode       render.Mode         `json:"mode"`
	Dirty      bool                `json:"dirty"`
	Version    uint64              `json:"version"`
	Components []models.Component  `json:"components"`
	Effects    []models.Component  `json:"effects"`
}

// ============================================================
// Controller
// ============================================================

// Controller держит состояние редактора одной страницы. Не потокобезопасен:
// вызовы сериализует владелец (сессия).
type Controller struct {
	reg      *registry.Registry
	tree     *tree.Tree
	renderer *render.Dispatcher
	repo     repository.PageRepository
	log      zerolog.Logger

	pageID    string
	title     string
	settings  models.PageSettings
	published bool

	selected string
	zoom     int
	tab      Tab
	mode     render.Mode

	savedVersion uint64
	metaDirty    bool
}

type Option func(*config)

type config struct {
	log    zerolog.Logger
	idFunc tree.IDFunc
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

func WithIDFunc(fn tree.IDFunc) Option {
	return func(c *config) {
		c.idFunc = fn
	}
}

func New(reg *registry.Registry, renderer *render.Dispatcher, repo repository.PageRepository, opts ...Option) *Controller {
	cfg := config{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	treeOpts := []tree.Option{tree.WithLogger(cfg.log)}
	if cfg.idFunc != nil {
		treeOpts = append(treeOpts, tree.WithIDFunc(cfg.idFunc))
	}

	c := &Controller{
		reg:      reg,
		tree:     tree.New(reg, treeOpts...),
		renderer: renderer,
		repo:     repo,
		log:      cfg.log,
		settings: models.DefaultSettings(),
		zoom:     DefaultZoom,
		tab:      TabComponents,
		mode:     render.ModeEdit,
	}
	c.savedVersion = c.tree.Version()
	return c
}

func (c *Controller) PageID() string {
	return c.pageID
}

func (c *Controller) Title() string {
	return c.title
}

func (c *Controller) Settings() models.PageSettings {
	return c.settings
}

func (c *Controller) Published() bool {
	return c.published
}

func (c *Controller) Selected() string {
	return c.selected
}

func (c *Controller) Zoom() int {
	return c.zoom
}

func (c *Controller) Tab() Tab {
	return c.tab
}

// Mode: edit или preview.
func (c *Controller) Mode() render.Mode {
	return c.mode
}

func (c *Controller) Registry() *registry.Registry {
	return c.reg
}

// Dirty: есть несохранённые изменения.
func (c *Controller) Dirty() bool {
	return c.metaDirty || c.tree.Version() != c.savedVersion
}

func (c *Controller) Components() []models.Component {
	return c.tree.Components()
}

func (c *Controller) Get(id string) (models.Component, bool) {
	return c.tree.Get(id)
}

// Document собирает документ для persistence.
func (c *Controller) Document() models.PageDocument {
	return models.PageDocument{
		Title:      c.title,
		Components: c.tree.Components(),
		Settings:   c.settings,
	}
}

func (c *Controller) State() State {
	components := c.tree.Components()
	return State{
		PageID:     c.pageID,
		Title:      c.title,
		Settings:   c.settings,
		Published:  c.published,
		Selected:   c.selected,
		Zoom:       c.zoom,
		Tab:        c.tab,
		Mode:       c.mode,
		Dirty:      c.Dirty(),
		Version:    c.tree.Version(),
		Components: components,
		Effects:    render.ActiveEffects(c.reg, components),
	}
}

// ============================================================
// Gestures
// ============================================================

// Drop добавляет компонент из палитры в цель и выделяет его.
func (c *Controller) Drop(p DragPayload, target tree.Target) (models.Component, error) {
	rec, err := c.tree.Add(p.Type, target)
	if err != nil {
		return models.Component{}, err
	}
	c.selected = rec.ID
	c.tab = TabSettings
	c.log.Debug().Str("id", rec.ID).Str("type", string(rec.Type)).Str("grid", target.GridID).Msg("component dropped")
	return rec, nil
}

// Select выделяет существующую запись. Для неизвестного id false, выделение не меняется.
func (c *Controller) Select(id string) bool {
	if !c.tree.Contains(id) {
		return false
	}
	c.selected = id
	c.tab = TabSettings
	return true
}

func (c *Controller) ClearSelection() {
	c.selected = ""
}

func (c *Controller) Remove(id string) bool {
	if !c.tree.Remove(id) {
		return false
	}
	// выделение могло указывать на саму запись или на ребёнка удалённого grid
	if c.selected != "" && !c.tree.Contains(c.selected) {
		c.selected = ""
	}
	return true
}

// DeleteSelected удаляет выделенную запись. Без выделения ничего не делает.
func (c *Controller) DeleteSelected() bool {
	if c.selected == "" {
		return false
	}
	return c.Remove(c.selected)
}

func (c *Controller) Update(id string, partial map[string]any) (models.Component, bool) {
	return c.tree.Update(id, partial)
}

func (c *Controller) Reorder(ids []string) error {
	return c.tree.Reorder(ids)
}

func (c *Controller) ReorderColumn(gridID string, column int, ids []string) error {
	return c.tree.ReorderColumn(gridID, column, ids)
}

func (c *Controller) SetColumnCount(gridID string, n int) (models.Component, error) {
	return c.tree.SetColumnCount(gridID, n)
}

func (c *Controller) SetTitle(title string) {
	if title == c.title {
		return
	}
	c.title = title
	c.metaDirty = true
}

// UpdateSettings применяет непустые поля patch.
func (c *Controller) UpdateSettings(patch models.PageSettings) models.PageSettings {
	next := c.settings
	if patch.BackgroundColor != "" {
		next.BackgroundColor = patch.BackgroundColor
	}
	if patch.TextColor != "" {
		next.TextColor = patch.TextColor
	}
	if patch.FontFamily != "" {
		next.FontFamily = patch.FontFamily
	}
	if patch.Template != "" {
		next.Template = patch.Template
	}
	if next != c.settings {
		c.settings = next
		c.metaDirty = true
	}
	return c.settings
}

// SetZoom приводит значение к шагу и границам и возвращает итоговый zoom.
func (c *Controller) SetZoom(zoom int) int {
	zoom = (zoom + ZoomStep/2) / ZoomStep * ZoomStep
	c.zoom = min(max(zoom, MinZoom), MaxZoom)
	return c.zoom
}

func (c *Controller) ZoomIn() int {
	return c.SetZoom(c.zoom + ZoomStep)
}

func (c *Controller) ZoomOut() int {
	return c.SetZoom(c.zoom - ZoomStep)
}

func (c *Controller) SetTab(tab Tab) error {
	switch tab {
	case TabComponents, TabSettings, TabPage:
		c.tab = tab
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
}

func (c *Controller) TogglePreview() render.Mode {
	if c.mode == render.ModePreview {
		c.mode = render.ModeEdit
	} else {
		c.mode = render.ModePreview
	}
	return c.mode
}

// ActiveEffects пересчитывается из дерева на каждый вызов.
func (c *Controller) ActiveEffects() []models.Component {
	return render.ActiveEffects(c.reg, c.tree.Components())
}

// AttachAsset пишет URL ассета в поле записи, если запись ещё жива.
// Для списков (gallery.images) ассет добавляется в конец.
func (c *Controller) AttachAsset(id, field string, asset models.Asset) bool {
	rec, ok := c.tree.Get(id)
	if !ok {
		c.log.Debug().Str("id", id).Str("asset", asset.ID).Msg("asset attach ignored: component is gone")
		return false
	}
	if field == "" {
		field = "url"
	}

	var value any = asset.URL
	if list, isList := rec.Data[field].([]any); isList {
		value = append(list, map[string]any{"url": asset.URL, "alt": asset.Name})
	}
	_, applied := c.tree.Update(id, map[string]any{field: value})
	return applied
}

// ============================================================
// Persistence
// ============================================================

// Save отправляет документ в repository. При ошибке состояние не трогается.
func (c *Controller) Save(ctx context.Context) (string, error) {
	version := c.tree.Version()
	id, err := c.repo.Save(ctx, c.pageID, c.Document())
	if err != nil {
		c.log.Error().Err(err).Str("page", c.pageID).Msg("save failed, edits kept")
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	c.pageID = id
	c.savedVersion = version
	c.metaDirty = false
	c.log.Info().Str("page", id).Uint64("version", version).Msg("page saved")
	return id, nil
}

// Publish сохраняет страницу и помечает её опубликованной.
func (c *Controller) Publish(ctx context.Context) (string, error) {
	id, err := c.Save(ctx)
	if err != nil {
		return "", err
	}
	if err := c.repo.SetPublished(ctx, id, true); err != nil {
		c.log.Error().Err(err).Str("page", id).Msg("publish failed")
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	c.published = true
	return id, nil
}

// Load заменяет содержимое редактора документом из repository (load-on-mount).
func (c *Controller) Load(ctx context.Context, pageID string) error {
	doc, err := c.repo.Load(ctx, pageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		c.log.Error().Err(err).Str("page", pageID).Msg("load failed")
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	c.tree.Replace(doc.Components)
	c.pageID = pageID
	c.title = doc.Title
	c.settings = models.DefaultSettings()
	c.UpdateSettings(doc.Settings)
	c.published = doc.Published
	c.selected = ""
	c.savedVersion = c.tree.Version()
	c.metaDirty = false
	c.log.Info().Str("page", pageID).Int("components", c.tree.Len()).Msg("page loaded")
	return nil
}

// ============================================================
// Rendering
// ============================================================

// RenderCanvas рендерит верхний уровень в текущем режиме. Update элементов
// идёт обратно через контроллер.
func (c *Controller) RenderCanvas() []render.Element {
	return c.RenderCanvasMode(c.mode)
}

func (c *Controller) RenderCanvasMode(mode render.Mode) []render.Element {
	components := c.tree.Components()
	out := make([]render.Element, 0, len(components))
	for _, rec := range components {
		out = append(out, c.renderer.Render(rec, mode, c.onUpdate))
	}
	return out
}

func (c *Controller) RenderPage() (string, error) {
	return c.renderer.RenderPage(c.Document(), c.mode)
}

func (c *Controller) RenderPageMode(mode render.Mode) (string, error) {
	return c.renderer.RenderPage(c.Document(), mode)
}

func (c *Controller) onUpdate(id string, partial map[string]any) bool {
	_, ok := c.tree.Update(id, partial)
	return ok
}
