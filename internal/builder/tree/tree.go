package tree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
)

// ============================================================
// Errors & limits
// ============================================================

var (
	ErrUnknownType    = errors.New("unknown component type")
	ErrNestedGrid     = errors.New("grid cannot be placed inside a grid column")
	ErrTargetNotFound = errors.New("drop target not found")
	ErrNotGrid        = errors.New("component is not a grid")
	ErrOrderMismatch  = errors.New("order does not match current components")
	ErrColumnCount    = errors.New("unsupported column count")
	ErrIDExhausted    = errors.New("could not allocate a unique id")
)

const (
	MinColumns = 2
	MaxColumns = 3

	maxIDAttempts = 16
)

// ============================================================
// Tree Store
// ============================================================

type IDFunc func() string

// Target: место вставки: верхний уровень (пустой GridID) или колонка grid.
type Target struct {
	GridID string `json:"grid_id,omitempty"`
	Column int    `json:"column,omitempty"`
}

func TopLevel() Target {
	return Target{}
}

func InColumn(gridID string, column int) Target {
	return Target{GridID: gridID, Column: column}
}

func (t Target) IsTopLevel() bool {
	return t.GridID == ""
}

type Option func(*Tree)

func WithIDFunc(fn IDFunc) Option {
	return func(t *Tree) {
		if fn != nil {
			t.newID = fn
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(t *Tree) {
		t.log = log
	}
}

// Tree: упорядоченный список компонентов страницы плюс колонки grid.
// Блокировок нет: все мутации идут последовательно из одного обработчика.
type Tree struct {
	reg        *registry.Registry
	newID      IDFunc
	log        zerolog.Logger
	components []models.Component
	removed    map[string]struct{}
	version    uint64
}

func New(reg *registry.Registry, opts ...Option) *Tree {
	t := &Tree{
		reg:     reg,
		newID:   uuid.NewString,
		log:     zerolog.Nop(),
		removed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Version растёт на каждой применённой мутации.
func (t *Tree) Version() uint64 {
	return t.version
}

func (t *Tree) Len() int {
	return len(t.components)
}

// Components возвращает глубокую копию верхнего уровня.
func (t *Tree) Components() []models.Component {
	out := make([]models.Component, len(t.components))
	for i, c := range t.components {
		out[i] = c.Clone()
	}
	return out
}

// Get ищет запись на верхнем уровне и в колонках grid.
func (t *Tree) Get(id string) (models.Component, bool) {
	ref := t.ref(id)
	if ref == nil {
		return models.Component{}, false
	}
	return ref.Clone(), true
}

func (t *Tree) Contains(id string) bool {
	return t.ref(id) != nil
}

// ParentGrid возвращает id grid, в колонке которого лежит запись.
func (t *Tree) ParentGrid(id string) (string, int, bool) {
	loc, ok := t.locate(id)
	if !ok || loc.grid < 0 {
		return "", 0, false
	}
	return t.components[loc.grid].ID, loc.column, true
}

// ============================================================
// Mutations
// ============================================================

// Add создаёт запись из шаблона реестра и добавляет её в конец цели.
func (t *Tree) Add(typ models.ComponentType, target Target) (models.Component, error) {
	entry, ok := t.reg.Lookup(typ)
	if !ok {
		t.log.Warn().Str("type", string(typ)).Msg("add rejected: unknown type")
		return models.Component{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if !target.IsTopLevel() && typ == models.TypeGrid {
		t.log.Warn().Str("grid", target.GridID).Int("column", target.Column).Msg("add rejected: nested grid")
		return models.Component{}, ErrNestedGrid
	}

	var column *models.Column
	if !target.IsTopLevel() {
		col, err := t.activeColumn(target)
		if err != nil {
			t.log.Warn().Err(err).Str("grid", target.GridID).Int("column", target.Column).Msg("add rejected")
			return models.Component{}, err
		}
		column = col
	}

	id, err := t.uniqueID()
	if err != nil {
		return models.Component{}, err
	}

	rec := models.Component{ID: id, Type: typ, Data: entry.DefaultData()}
	if rec.IsGrid() {
		t.enforceGrid(&rec, t.idsOutside(rec.ID))
	}

	if column != nil {
		column.Components = append(column.Components, rec)
	} else {
		t.components = append(t.components, rec)
	}
	t.version++
	return rec.Clone(), nil
}

// Update делает shallow merge partial в data. Отсутствующий или удалённый id, no-op.
func (t *Tree) Update(id string, partial map[string]any) (models.Component, bool) {
	if _, gone := t.removed[id]; gone {
		t.log.Debug().Str("id", id).Msg("update ignored: component was removed")
		return models.Component{}, false
	}
	ref := t.ref(id)
	if ref == nil {
		t.log.Debug().Str("id", id).Msg("update ignored: component not found")
		return models.Component{}, false
	}

	ref.Data = ref.Data.Merge(partial)
	if ref.IsGrid() {
		models.NormalizeGrid(ref.Data)
		t.enforceGrid(ref, t.idsOutside(ref.ID))
	}
	t.version++
	return ref.Clone(), true
}

// Remove удаляет запись отовсюду. Дети удалённого grid тоже считаются удалёнными.
func (t *Tree) Remove(id string) bool {
	loc, ok := t.locate(id)
	if !ok {
		return false
	}

	var removed models.Component
	if loc.grid < 0 {
		removed = t.components[loc.index]
		t.components = slices.Delete(t.components, loc.index, loc.index+1)
	} else {
		cols := t.components[loc.grid].GridColumns()
		removed = cols[loc.column].Components[loc.index]
		cols[loc.column].Components = slices.Delete(cols[loc.column].Components, loc.index, loc.index+1)
	}

	t.removed[removed.ID] = struct{}{}
	for _, col := range removed.GridColumns() {
		for _, child := range col.Components {
			t.removed[child.ID] = struct{}{}
		}
	}
	t.version++
	return true
}

// Reorder заменяет верхний уровень перестановкой ids.
func (t *Tree) Reorder(ids []string) error {
	next, ok := permute(t.components, ids)
	if !ok {
		t.log.Warn().Strs("ids", ids).Msg("reorder rejected: id set mismatch")
		return ErrOrderMismatch
	}
	t.components = next
	t.version++
	return nil
}

// ReorderColumn: то же самое для одной колонки grid.
func (t *Tree) ReorderColumn(gridID string, column int, ids []string) error {
	col, err := t.activeColumn(InColumn(gridID, column))
	if err != nil {
		return err
	}
	next, ok := permute(col.Components, ids)
	if !ok {
		t.log.Warn().Str("grid", gridID).Int("column", column).Strs("ids", ids).Msg("column reorder rejected: id set mismatch")
		return ErrOrderMismatch
	}
	col.Components = next
	t.version++
	return nil
}

// SetColumnCount меняет число активных колонок. Данные скрытых колонок сохраняются.
func (t *Tree) SetColumnCount(gridID string, n int) (models.Component, error) {
	if n < MinColumns || n > MaxColumns {
		return models.Component{}, fmt.Errorf("%w: %d (allowed %d..%d)", ErrColumnCount, n, MinColumns, MaxColumns)
	}
	idx := t.topLevelIndex(gridID)
	if idx < 0 {
		return models.Component{}, ErrTargetNotFound
	}
	grid := &t.components[idx]
	if !grid.IsGrid() {
		return models.Component{}, ErrNotGrid
	}

	grid.Data[models.KeyColumns] = n
	t.enforceGrid(grid, t.idsOutside(grid.ID))
	t.version++
	return grid.Clone(), nil
}

// Replace загружает новый набор компонентов (load-on-mount).
// Вложенные grid и дубликаты id (в том числе внутри колонок) отбрасываются с предупреждением.
func (t *Tree) Replace(components []models.Component) {
	t.components = make([]models.Component, 0, len(components))
	t.removed = make(map[string]struct{})
	seen := make(map[string]bool, len(components))

	for _, c := range components {
		rec := c.Clone()
		if rec.ID == "" || seen[rec.ID] {
			t.log.Warn().Str("id", rec.ID).Msg("load: dropping component with empty or duplicate id")
			continue
		}
		seen[rec.ID] = true
		if rec.Data == nil {
			rec.Data = models.Data{}
		}
		if rec.IsGrid() {
			models.NormalizeGrid(rec.Data)
			t.enforceGrid(&rec, seen)
		}
		t.components = append(t.components, rec)
	}
	t.version++
}

// ============================================================
// Helpers
// ============================================================

type location struct {
	grid   int // индекс grid на верхнем уровне, -1, сама запись на верхнем уровне
	column int
	index  int
}

func (t *Tree) locate(id string) (location, bool) {
	if id == "" {
		return location{}, false
	}
	for i, c := range t.components {
		if c.ID == id {
			return location{grid: -1, index: i}, true
		}
	}
	for gi, c := range t.components {
		if !c.IsGrid() {
			continue
		}
		for ci, col := range c.GridColumns() {
			for i, child := range col.Components {
				if child.ID == id {
					return location{grid: gi, column: ci, index: i}, true
				}
			}
		}
	}
	return location{}, false
}

func (t *Tree) ref(id string) *models.Component {
	loc, ok := t.locate(id)
	if !ok {
		return nil
	}
	if loc.grid < 0 {
		return &t.components[loc.index]
	}
	cols := t.components[loc.grid].GridColumns()
	return &cols[loc.column].Components[loc.index]
}

func (t *Tree) topLevelIndex(id string) int {
	for i, c := range t.components {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// activeColumn возвращает видимую колонку grid верхнего уровня.
func (t *Tree) activeColumn(target Target) (*models.Column, error) {
	idx := t.topLevelIndex(target.GridID)
	if idx < 0 {
		return nil, ErrTargetNotFound
	}
	grid := t.components[idx]
	if !grid.IsGrid() {
		return nil, ErrNotGrid
	}
	cols := grid.GridColumns()
	if target.Column < 0 || target.Column >= grid.ColumnCount() || target.Column >= len(cols) {
		return nil, fmt.Errorf("%w: column %d", ErrTargetNotFound, target.Column)
	}
	return &cols[target.Column], nil
}

func (t *Tree) uniqueID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := t.newID()
		if id == "" {
			continue
		}
		if _, gone := t.removed[id]; gone {
			continue
		}
		if t.Contains(id) {
			continue
		}
		return id, nil
	}
	return "", ErrIDExhausted
}

// idsOutside собирает ids всех записей дерева, кроме grid и его детей.
func (t *Tree) idsOutside(gridID string) map[string]bool {
	ids := make(map[string]bool, len(t.components))
	for _, c := range t.components {
		ids[c.ID] = true
		if c.ID == gridID {
			continue
		}
		for _, col := range c.GridColumns() {
			for _, child := range col.Components {
				ids[child.ID] = true
			}
		}
	}
	return ids
}

// enforceGrid держит инварианты grid: columns в допустимых границах,
// физических колонок не меньше активных, внутри колонок нет grid.
// Дети с удалёнными, пустыми или уже занятыми id отбрасываются.
// taken: ids вне этого grid, пополняется оставленными детьми.
func (t *Tree) enforceGrid(grid *models.Component, taken map[string]bool) {
	if grid.Data == nil {
		grid.Data = models.Data{}
	}
	n := grid.ColumnCount()
	if n < MinColumns || n > MaxColumns {
		clamped := min(max(n, MinColumns), MaxColumns)
		t.log.Warn().Str("grid", grid.ID).Int("columns", n).Int("clamped", clamped).Msg("grid column count out of range")
		n = clamped
	}
	grid.Data[models.KeyColumns] = n

	if taken == nil {
		taken = make(map[string]bool)
	}
	taken[grid.ID] = true

	cols := grid.GridColumns()
	colIDs := make(map[string]bool, len(cols))
	for i := range cols {
		colIDs[cols[i].ID] = true
		if cols[i].Components == nil {
			cols[i].Components = []models.Component{}
		}
		kept := cols[i].Components[:0]
		for _, child := range cols[i].Components {
			if child.IsGrid() {
				t.log.Warn().Str("grid", grid.ID).Str("child", child.ID).Msg("dropping nested grid from column")
				continue
			}
			if _, gone := t.removed[child.ID]; gone {
				t.log.Warn().Str("grid", grid.ID).Str("child", child.ID).Msg("dropping removed component from column")
				continue
			}
			if child.ID == "" || taken[child.ID] {
				t.log.Warn().Str("grid", grid.ID).Str("child", child.ID).Msg("dropping column child with empty or duplicate id")
				continue
			}
			taken[child.ID] = true
			kept = append(kept, child)
		}
		cols[i].Components = kept
	}

	for len(cols) < n {
		id := fmt.Sprintf("%s-col-%d", grid.ID, len(cols)+1)
		if colIDs[id] {
			id = t.newID()
		}
		colIDs[id] = true
		cols = append(cols, models.Column{ID: id, Components: []models.Component{}})
	}
	if cols == nil {
		cols = []models.Column{}
	}
	grid.Data[models.KeyGridColumns] = cols
}

// permute собирает новую последовательность по ids, если мультимножества совпадают.
func permute(current []models.Component, ids []string) ([]models.Component, bool) {
	if len(ids) != len(current) {
		return nil, false
	}
	pool := make(map[string][]models.Component, len(current))
	for _, c := range current {
		pool[c.ID] = append(pool[c.ID], c)
	}
	out := make([]models.Component, 0, len(ids))
	for _, id := range ids {
		queue := pool[id]
		if len(queue) == 0 {
			return nil, false
		}
		out = append(out, queue[0])
		pool[id] = queue[1:]
	}
	return out, true
}
