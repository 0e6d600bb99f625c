package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
	"page-builder/internal/builder/tree"
)

type fakeRepo struct {
	docs      map[string]models.PageDocument
	published map[string]bool
	saveErr   error
	loadErr   error
	saves     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: map[string]models.PageDocument{}, published: map[string]bool{}}
}

func (r *fakeRepo) Load(_ context.Context, id string) (models.PageDocument, error) {
	if r.loadErr != nil {
		return models.PageDocument{}, r.loadErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return models.PageDocument{}, repository.ErrNotFound
	}
	out := doc.Clone()
	out.Published = r.published[id]
	return out, nil
}

func (r *fakeRepo) Save(_ context.Context, id string, doc models.PageDocument) (string, error) {
	r.saves++
	if r.saveErr != nil {
		return "", r.saveErr
	}
	if id == "" {
		id = fmt.Sprintf("page-%d", len(r.docs)+1)
	}
	r.docs[id] = doc.Clone()
	return id, nil
}

func (r *fakeRepo) SetPublished(_ context.Context, id string, published bool) error {
	if _, ok := r.docs[id]; !ok {
		return repository.ErrNotFound
	}
	r.published[id] = published
	return nil
}

func (r *fakeRepo) List(context.Context) ([]models.PageSummary, error) {
	return nil, nil
}

func newController(t *testing.T, repo repository.PageRepository) *Controller {
	t.Helper()
	reg := registry.Default()
	d, err := render.NewDispatcher(reg)
	require.NoError(t, err)

	n := 0
	return New(reg, d, repo, WithIDFunc(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
}

func TestDropSelectsNewComponent(t *testing.T) {
	c := newController(t, newFakeRepo())

	rec, err := c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, c.Selected())
	assert.Equal(t, TabSettings, c.Tab())
	assert.True(t, c.Dirty())

	_, err = c.Drop(DragPayload{Type: "carousel"}, tree.TopLevel())
	assert.ErrorIs(t, err, tree.ErrUnknownType)
	assert.Equal(t, rec.ID, c.Selected())
}

func TestSelectUnknownKeepsSelection(t *testing.T) {
	c := newController(t, newFakeRepo())
	rec, _ := c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())

	assert.False(t, c.Select("missing"))
	assert.Equal(t, rec.ID, c.Selected())
}

func TestDeleteKeyWithoutSelectionIsNoop(t *testing.T) {
	c := newController(t, newFakeRepo())
	ctx := context.Background()
	_, _ = c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())
	c.ClearSelection()

	before := c.State()
	changed, err := c.HandleKey(ctx, KeyDelete)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, c.State())
}

func TestDeleteKeyRemovesSelected(t *testing.T) {
	c := newController(t, newFakeRepo())
	ctx := context.Background()
	first, _ := c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())
	second, _ := c.Drop(DragPayload{Type: models.TypeImage}, tree.TopLevel())

	require.True(t, c.Select(first.ID))
	changed, err := c.HandleKey(ctx, KeyDelete)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, c.Selected())

	comps := c.Components()
	require.Len(t, comps, 1)
	assert.Equal(t, second.ID, comps[0].ID)
}

func TestDeleteKeyIgnoredInPreview(t *testing.T) {
	c := newController(t, newFakeRepo())
	rec, _ := c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())
	c.TogglePreview()

	changed, err := c.HandleKey(context.Background(), KeyDelete)
	require.NoError(t, err)
	assert.False(t, changed)
	_, ok := c.Get(rec.ID)
	assert.True(t, ok)
}

func TestEscapeIsIdempotent(t *testing.T) {
	c := newController(t, newFakeRepo())
	ctx := context.Background()
	_, _ = c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())

	changed, err := c.HandleKey(ctx, KeyEscape)
	require.NoError(t, err)
	assert.True(t, changed)

	state := c.State()
	changed, err = c.HandleKey(ctx, KeyEscape)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, state, c.State())
}

func TestPreviewToggle(t *testing.T) {
	c := newController(t, newFakeRepo())
	ctx := context.Background()

	_, err := c.HandleKey(ctx, KeyPreview)
	require.NoError(t, err)
	assert.Equal(t, render.ModePreview, c.Mode())

	_, err = c.HandleKey(ctx, KeyPreview)
	require.NoError(t, err)
	assert.Equal(t, render.ModeEdit, c.Mode())

	_, err = c.HandleKey(ctx, "f5")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestParseKey(t *testing.T) {
	for in, want := range map[string]Key{
		"Delete": KeyDelete, "backspace": KeyDelete, "ESC": KeyEscape,
		"ctrl+s": KeySave, "cmd+p": KeyPreview, "preview": KeyPreview,
	} {
		got, ok := ParseKey(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseKey("tab")
	assert.False(t, ok)
}

func TestRemovingGridClearsSelectedChild(t *testing.T) {
	c := newController(t, newFakeRepo())
	grid, err := c.Drop(DragPayload{Type: models.TypeGrid}, tree.TopLevel())
	require.NoError(t, err)
	child, err := c.Drop(DragPayload{Type: models.TypeText}, tree.InColumn(grid.ID, 1))
	require.NoError(t, err)
	require.Equal(t, child.ID, c.Selected())

	require.True(t, c.Remove(grid.ID))
	assert.Empty(t, c.Selected())
	assert.False(t, c.Remove(grid.ID))
}

func TestZoomClampsAndSnaps(t *testing.T) {
	c := newController(t, newFakeRepo())
	assert.Equal(t, DefaultZoom, c.Zoom())
	assert.Equal(t, 130, c.SetZoom(127))
	assert.Equal(t, MaxZoom, c.SetZoom(500))
	assert.Equal(t, MinZoom, c.SetZoom(0))
	assert.Equal(t, 30, c.ZoomIn())
	assert.Equal(t, MinZoom, c.ZoomOut())
	assert.Equal(t, MinZoom, c.ZoomOut())
}

func TestSetTab(t *testing.T) {
	c := newController(t, newFakeRepo())
	require.NoError(t, c.SetTab(TabPage))
	assert.Equal(t, TabPage, c.Tab())
	assert.ErrorIs(t, c.SetTab("layers"), ErrUnknownTab)
	assert.Equal(t, TabPage, c.Tab())
}

func TestActiveEffectsAreDerived(t *testing.T) {
	c := newController(t, newFakeRepo())
	snow, _ := c.Drop(DragPayload{Type: models.TypeSnowfall}, tree.TopLevel())
	_, _ = c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())

	effects := c.ActiveEffects()
	require.Len(t, effects, 1)
	assert.Equal(t, snow.ID, effects[0].ID)

	_, ok := c.Update(snow.ID, map[string]any{models.KeyEnabled: false})
	require.True(t, ok)
	assert.Empty(t, c.ActiveEffects())

	c.Update(snow.ID, map[string]any{models.KeyEnabled: true})
	assert.Len(t, c.State().Effects, 1)

	c.Remove(snow.ID)
	assert.Empty(t, c.ActiveEffects())
}

func TestSaveFailureKeepsEdits(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	ctx := context.Background()
	rec, _ := c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())
	c.Update(rec.ID, map[string]any{"content": "draft"})

	repo.saveErr = errors.New("connection reset")
	before := c.Components()

	_, err := c.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Equal(t, before, c.Components())
	assert.True(t, c.Dirty())
	assert.Empty(t, c.PageID())

	_, err = c.HandleKey(ctx, KeySave)
	assert.ErrorIs(t, err, ErrSaveFailed)

	// повтор после восстановления проходит с теми же правками
	repo.saveErr = nil
	id, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, c.PageID())
	assert.False(t, c.Dirty())
	assert.Equal(t, "draft", repo.docs[id].Components[0].Data["content"])
}

func TestSaveReusesPageID(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	ctx := context.Background()

	c.SetTitle("Hello")
	id, err := c.Save(ctx)
	require.NoError(t, err)

	c.SetTitle("Hello again")
	assert.True(t, c.Dirty())
	again, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, repo.docs, 1)
	assert.Equal(t, "Hello again", repo.docs[id].Title)
}

func TestPublish(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)

	id, err := c.Publish(context.Background())
	require.NoError(t, err)
	assert.True(t, repo.published[id])
	assert.True(t, c.Published())
}

func TestLoadReplacesState(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["p1"] = models.PageDocument{
		Title: "Stored",
		Components: []models.Component{
			{ID: "a", Type: models.TypeText, Data: models.Data{"content": "hi"}},
		},
		Settings: models.PageSettings{BackgroundColor: "#000000"},
	}
	c := newController(t, repo)
	ctx := context.Background()
	rec, _ := c.Drop(DragPayload{Type: models.TypeImage}, tree.TopLevel())

	require.NoError(t, c.Load(ctx, "p1"))
	assert.Equal(t, "p1", c.PageID())
	assert.Equal(t, "Stored", c.Title())
	assert.Equal(t, "#000000", c.Settings().BackgroundColor)
	assert.Equal(t, models.DefaultSettings().FontFamily, c.Settings().FontFamily)
	assert.Empty(t, c.Selected())
	assert.False(t, c.Dirty())
	_, ok := c.Get(rec.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, c.Load(ctx, "missing"), repository.ErrNotFound)

	repo.loadErr = errors.New("timeout")
	err := c.Load(ctx, "p1")
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Equal(t, "Stored", c.Title())
}

func TestLoadRestoresPublishedFlag(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()

	author := newController(t, repo)
	id, err := author.Publish(ctx)
	require.NoError(t, err)

	reader := newController(t, repo)
	require.NoError(t, reader.Load(ctx, id))
	assert.True(t, reader.Published())
	assert.True(t, reader.State().Published)

	repo.docs["draft"] = models.PageDocument{Title: "Draft"}
	require.NoError(t, reader.Load(ctx, "draft"))
	assert.False(t, reader.Published())
}

func TestUpdateSettingsMarksDirty(t *testing.T) {
	c := newController(t, newFakeRepo())
	assert.False(t, c.Dirty())

	c.UpdateSettings(models.PageSettings{})
	assert.False(t, c.Dirty())

	got := c.UpdateSettings(models.PageSettings{TextColor: "#ff0000"})
	assert.Equal(t, "#ff0000", got.TextColor)
	assert.Equal(t, models.DefaultSettings().BackgroundColor, got.BackgroundColor)
	assert.True(t, c.Dirty())
}

func TestAttachAssetRevalidatesTarget(t *testing.T) {
	c := newController(t, newFakeRepo())
	img, _ := c.Drop(DragPayload{Type: models.TypeImage}, tree.TopLevel())
	gallery, _ := c.Drop(DragPayload{Type: models.TypeGallery}, tree.TopLevel())
	asset := models.Asset{ID: "as1", URL: "/assets/o/as1", Name: "cat.png"}

	require.True(t, c.AttachAsset(img.ID, "url", asset))
	got, _ := c.Get(img.ID)
	assert.Equal(t, "/assets/o/as1", got.Data["url"])

	require.True(t, c.AttachAsset(gallery.ID, "images", asset))
	require.True(t, c.AttachAsset(gallery.ID, "images", asset))
	got, _ = c.Get(gallery.ID)
	assert.Len(t, got.Data["images"], 2)

	// пикер ассетов закрылся после удаления записи
	c.Remove(img.ID)
	version := c.State().Version
	assert.False(t, c.AttachAsset(img.ID, "url", asset))
	assert.Equal(t, version, c.State().Version)
}

func TestRenderCanvasRoutesUpdatesThroughTree(t *testing.T) {
	c := newController(t, newFakeRepo())
	rec, _ := c.Drop(DragPayload{Type: models.TypeText}, tree.TopLevel())

	elements := c.RenderCanvas()
	require.Len(t, elements, 1)
	require.True(t, elements[0].Update(map[string]any{"content": "typed"}))

	got, _ := c.Get(rec.ID)
	assert.Equal(t, "typed", got.Data["content"])

	// элемент, отрисованный до удаления, больше ничего не меняет
	c.Remove(rec.ID)
	assert.False(t, elements[0].Update(map[string]any{"content": "ghost"}))
	assert.Empty(t, c.Components())
}

func TestRenderPageUsesViewMode(t *testing.T) {
	c := newController(t, newFakeRepo())
	c.SetTitle("Card")
	_, _ = c.Drop(DragPayload{Type: models.TypeHeader}, tree.TopLevel())

	html, err := c.RenderPage()
	require.NoError(t, err)
	assert.Contains(t, html, `data-mode="edit"`)

	c.TogglePreview()
	html, err = c.RenderPage()
	require.NoError(t, err)
	assert.Contains(t, html, `data-mode="preview"`)
}
