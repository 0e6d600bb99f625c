package controller

import (
	"maps"

	"page-builder/internal/builder/models"
)

// ============================================================
// Edit Buffer
// ============================================================

// EditBuffer: локальные правки панели настроек. Данные записи всегда
// читаются из дерева, буфер хранит только pending. Commit единственная
// точка записи обратно.
type EditBuffer struct {
	ctl      *Controller
	id       string
	typ      models.ComponentType
	gridID   string
	column   int
	snapshot models.Data
	pending  map[string]any
}

// OpenEditor открывает буфер для записи верхнего уровня или ребёнка grid.
func (c *Controller) OpenEditor(id string) (*EditBuffer, bool) {
	rec, ok := c.tree.Get(id)
	if !ok {
		return nil, false
	}
	buf := &EditBuffer{
		ctl:      c,
		id:       rec.ID,
		typ:      rec.Type,
		snapshot: rec.Data,
		pending:  map[string]any{},
	}
	if gridID, col, nested := c.tree.ParentGrid(id); nested {
		buf.gridID = gridID
		buf.column = col
	}
	return buf, true
}

func (b *EditBuffer) ID() string {
	return b.id
}

func (b *EditBuffer) Type() models.ComponentType {
	return b.typ
}

// Parent возвращает grid и колонку для ребёнка grid.
func (b *EditBuffer) Parent() (string, int, bool) {
	return b.gridID, b.column, b.gridID != ""
}

// Set кладёт правку в pending. Дерево не меняется.
func (b *EditBuffer) Set(key string, value any) {
	b.pending[key] = value
}

// View: данные записи из дерева с наложенными pending.
// Если запись уже удалена, основой служит снимок на момент открытия.
func (b *EditBuffer) View() models.Data {
	base := b.snapshot
	if rec, ok := b.ctl.tree.Get(b.id); ok {
		base = rec.Data
	}
	return base.Merge(b.pending)
}

func (b *EditBuffer) Pending() map[string]any {
	return maps.Clone(b.pending)
}

func (b *EditBuffer) Dirty() bool {
	return len(b.pending) > 0
}

// Stale: запись удалена после открытия редактора.
func (b *EditBuffer) Stale() bool {
	return !b.ctl.tree.Contains(b.id)
}

func (b *EditBuffer) Discard() {
	clear(b.pending)
}

// Commit сливает pending в дерево. Для удалённой записи ничего не делает и возвращает false,
// pending при этом сбрасываются.
func (b *EditBuffer) Commit() (models.Component, bool) {
	if !b.ctl.tree.Contains(b.id) {
		b.ctl.log.Debug().Str("id", b.id).Msg("editor commit ignored: component is gone")
		b.Discard()
		return models.Component{}, false
	}
	if len(b.pending) == 0 {
		rec, _ := b.ctl.tree.Get(b.id)
		return rec, true
	}
	rec, ok := b.ctl.tree.Update(b.id, b.pending)
	if ok {
		b.pending = map[string]any{}
	}
	return rec, ok
}
