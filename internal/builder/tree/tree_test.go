package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
)

func sequentialIDs(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func fixedIDs(ids ...string) IDFunc {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func newTree(t *testing.T, opts ...Option) *Tree {
	t.Helper()
	return New(registry.Default(), opts...)
}

func ids(components []models.Component) []string {
	out := make([]string, len(components))
	for i, c := range components {
		out[i] = c.ID
	}
	return out
}

func TestAddTextToEmptyTree(t *testing.T) {
	tr := newTree(t)

	rec, err := tr.Add(models.TypeText, TopLevel())
	require.NoError(t, err)

	got := tr.Components()
	require.Len(t, got, 1)
	assert.Equal(t, models.TypeText, got[0].Type)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, registry.Default().MustLookup(models.TypeText).DefaultData(), got[0].Data)
}

func TestAddUnknownType(t *testing.T) {
	tr := newTree(t)
	_, err := tr.Add("carousel", TopLevel())
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, 0, tr.Len())
}

func TestIdentityUniqueness(t *testing.T) {
	// генератор повторяется, и дерево обязано пропустить занятые id
	tr := newTree(t, WithIDFunc(fixedIDs("a", "a", "b", "a", "b", "c")))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		rec, err := tr.Add(models.TypeText, TopLevel())
		require.NoError(t, err)
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids(tr.Components()))

	_, err := tr.Add(models.TypeText, TopLevel())
	assert.ErrorIs(t, err, ErrIDExhausted)
}

func TestIdentityUniquenessInColumns(t *testing.T) {
	tr := newTree(t)
	grid, err := tr.Add(models.TypeGrid, TopLevel())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := tr.Add(models.TypeImage, InColumn(grid.ID, i%2))
		require.NoError(t, err)
	}

	got, ok := tr.Get(grid.ID)
	require.True(t, ok)
	for _, col := range got.GridColumns() {
		seen := map[string]bool{}
		for _, child := range col.Components {
			assert.False(t, seen[child.ID])
			seen[child.ID] = true
		}
	}
}

func TestUpdateAfterRemoveIsNoop(t *testing.T) {
	tr := newTree(t)
	rec, err := tr.Add(models.TypeText, TopLevel())
	require.NoError(t, err)
	require.True(t, tr.Remove(rec.ID))

	before := tr.Components()
	_, applied := tr.Update(rec.ID, map[string]any{"content": "new"})
	assert.False(t, applied)
	assert.Equal(t, before, tr.Components())
	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.Contains(rec.ID))
}

func TestRemovedIDIsNeverReissued(t *testing.T) {
	tr := newTree(t, WithIDFunc(fixedIDs("x", "x", "y")))
	rec, err := tr.Add(models.TypeText, TopLevel())
	require.NoError(t, err)
	require.Equal(t, "x", rec.ID)
	require.True(t, tr.Remove("x"))

	next, err := tr.Add(models.TypeText, TopLevel())
	require.NoError(t, err)
	assert.Equal(t, "y", next.ID)

	_, applied := tr.Update("x", map[string]any{"content": "ghost"})
	assert.False(t, applied)
}

func TestUpdateMergesShallow(t *testing.T) {
	tr := newTree(t)
	rec, err := tr.Add(models.TypeButton, TopLevel())
	require.NoError(t, err)

	got, applied := tr.Update(rec.ID, map[string]any{"label": "Go", "color": "red"})
	require.True(t, applied)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, models.TypeButton, got.Type)
	assert.Equal(t, "Go", got.Data["label"])
	assert.Equal(t, "red", got.Data["color"])
	assert.Equal(t, "#", got.Data["url"])

	_, applied = tr.Update("missing", map[string]any{"label": "x"})
	assert.False(t, applied)
}

func TestReorderPermutation(t *testing.T) {
	tr := newTree(t, WithIDFunc(fixedIDs("a", "b", "c")))
	for i := 0; i < 3; i++ {
		_, err := tr.Add(models.TypeText, TopLevel())
		require.NoError(t, err)
	}

	require.NoError(t, tr.Reorder([]string{"c", "a", "b"}))
	assert.Equal(t, []string{"c", "a", "b"}, ids(tr.Components()))

	version := tr.Version()
	assert.ErrorIs(t, tr.Reorder([]string{"a", "a", "b"}), ErrOrderMismatch)
	assert.ErrorIs(t, tr.Reorder([]string{"a", "b"}), ErrOrderMismatch)
	assert.ErrorIs(t, tr.Reorder([]string{"a", "b", "c", "d"}), ErrOrderMismatch)
	assert.Equal(t, []string{"c", "a", "b"}, ids(tr.Components()))
	assert.Equal(t, version, tr.Version())
}

func TestNestingGuard(t *testing.T) {
	tr := newTree(t)
	grid, err := tr.Add(models.TypeGrid, TopLevel())
	require.NoError(t, err)
	before, _ := tr.Get(grid.ID)

	_, err = tr.Add(models.TypeGrid, InColumn(grid.ID, 0))
	assert.ErrorIs(t, err, ErrNestedGrid)

	after, _ := tr.Get(grid.ID)
	assert.Equal(t, before.GridColumns(), after.GridColumns())
	assert.Equal(t, 1, tr.Len())
}

func TestNestedGridViaUpdateIsDropped(t *testing.T) {
	tr := newTree(t)
	grid, err := tr.Add(models.TypeGrid, TopLevel())
	require.NoError(t, err)

	payload := map[string]any{
		models.KeyGridColumns: []any{
			map[string]any{"id": "c1", "components": []any{
				map[string]any{"id": "t1", "type": "text", "data": map[string]any{"content": "hi"}},
				map[string]any{"id": "g2", "type": "grid", "data": map[string]any{}},
			}},
		},
	}
	got, applied := tr.Update(grid.ID, payload)
	require.True(t, applied)

	cols := got.GridColumns()
	require.Len(t, cols, 2)
	require.Len(t, cols[0].Components, 1)
	assert.Equal(t, "t1", cols[0].Components[0].ID)
	assert.Empty(t, cols[1].Components)
}

func TestRegistryIsolation(t *testing.T) {
	reg := registry.Default()
	tr := New(reg)
	a, err := tr.Add(models.TypeTimeline, TopLevel())
	require.NoError(t, err)
	b, err := tr.Add(models.TypeTimeline, TopLevel())
	require.NoError(t, err)

	_, applied := tr.Update(a.ID, map[string]any{"events": []any{}, "title": "mine"})
	require.True(t, applied)

	gotB, _ := tr.Get(b.ID)
	assert.Equal(t, b.Data, gotB.Data)
	assert.Equal(t, reg.MustLookup(models.TypeTimeline).DefaultData(), gotB.Data)

	// мутация возвращённой копии не протекает в дерево
	gotB.Data["events"].([]any)[0].(map[string]any)["title"] = "leak"
	again, _ := tr.Get(b.ID)
	assert.Equal(t, "First event", again.Data["events"].([]any)[0].(map[string]any)["title"])
}

func TestGridColumnsScenario(t *testing.T) {
	tr := newTree(t)
	grid, err := tr.Add(models.TypeGrid, TopLevel())
	require.NoError(t, err)
	require.Len(t, grid.GridColumns(), 2)

	_, err = tr.SetColumnCount(grid.ID, 3)
	require.NoError(t, err)

	img, err := tr.Add(models.TypeImage, InColumn(grid.ID, 2))
	require.NoError(t, err)

	got, _ := tr.Get(grid.ID)
	cols := got.GridColumns()
	require.Len(t, cols, 3)
	require.Len(t, cols[2].Components, 1)
	assert.Equal(t, models.TypeImage, cols[2].Components[0].Type)
	assert.Equal(t, img.ID, cols[2].Components[0].ID)
	assert.Empty(t, cols[0].Components)
	assert.Empty(t, cols[1].Components)
}

func TestShrinkRetainsHiddenColumns(t *testing.T) {
	tr := newTree(t)
	grid, _ := tr.Add(models.TypeGrid, TopLevel())
	_, err := tr.SetColumnCount(grid.ID, 3)
	require.NoError(t, err)
	child, err := tr.Add(models.TypeQuote, InColumn(grid.ID, 2))
	require.NoError(t, err)

	shrunk, err := tr.SetColumnCount(grid.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, shrunk.ColumnCount())
	require.Len(t, shrunk.GridColumns(), 3)
	assert.Equal(t, child.ID, shrunk.GridColumns()[2].Components[0].ID)

	// скрытая колонка недоступна для добавления
	_, err = tr.Add(models.TypeText, InColumn(grid.ID, 2))
	assert.ErrorIs(t, err, ErrTargetNotFound)

	grown, err := tr.SetColumnCount(grid.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, child.ID, grown.GridColumns()[2].Components[0].ID)
}

func TestSetColumnCountValidation(t *testing.T) {
	tr := newTree(t)
	grid, _ := tr.Add(models.TypeGrid, TopLevel())
	text, _ := tr.Add(models.TypeText, TopLevel())

	_, err := tr.SetColumnCount(grid.ID, 7)
	assert.ErrorIs(t, err, ErrColumnCount)
	_, err = tr.SetColumnCount(grid.ID, 1)
	assert.ErrorIs(t, err, ErrColumnCount)
	_, err = tr.SetColumnCount(text.ID, 3)
	assert.ErrorIs(t, err, ErrNotGrid)
	_, err = tr.SetColumnCount("missing", 3)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestNestedUpdateAndRemove(t *testing.T) {
	tr := newTree(t)
	grid, _ := tr.Add(models.TypeGrid, TopLevel())
	child, err := tr.Add(models.TypeText, InColumn(grid.ID, 1))
	require.NoError(t, err)

	parent, col, ok := tr.ParentGrid(child.ID)
	require.True(t, ok)
	assert.Equal(t, grid.ID, parent)
	assert.Equal(t, 1, col)

	updated, applied := tr.Update(child.ID, map[string]any{"content": "inside"})
	require.True(t, applied)
	assert.Equal(t, "inside", updated.Data["content"])

	require.True(t, tr.Remove(child.ID))
	got, _ := tr.Get(grid.ID)
	assert.Empty(t, got.GridColumns()[1].Components)
	assert.False(t, tr.Remove(child.ID))
}

func TestRemoveGridTombstonesChildren(t *testing.T) {
	tr := newTree(t)
	grid, _ := tr.Add(models.TypeGrid, TopLevel())
	child, _ := tr.Add(models.TypeText, InColumn(grid.ID, 0))

	require.True(t, tr.Remove(grid.ID))
	_, applied := tr.Update(child.ID, map[string]any{"content": "x"})
	assert.False(t, applied)
	assert.Equal(t, 0, tr.Len())
}

func TestReorderColumn(t *testing.T) {
	tr := newTree(t, WithIDFunc(sequentialIDs("n")))
	grid, _ := tr.Add(models.TypeGrid, TopLevel())
	a, _ := tr.Add(models.TypeText, InColumn(grid.ID, 0))
	b, _ := tr.Add(models.TypeText, InColumn(grid.ID, 0))

	require.NoError(t, tr.ReorderColumn(grid.ID, 0, []string{b.ID, a.ID}))
	got, _ := tr.Get(grid.ID)
	assert.Equal(t, []string{b.ID, a.ID}, ids(got.GridColumns()[0].Components))

	assert.ErrorIs(t, tr.ReorderColumn(grid.ID, 0, []string{a.ID}), ErrOrderMismatch)
	assert.ErrorIs(t, tr.ReorderColumn(grid.ID, 5, nil), ErrTargetNotFound)
}

func TestReplaceSanitizesLoadedComponents(t *testing.T) {
	tr := newTree(t)
	tr.Replace([]models.Component{
		{ID: "a", Type: models.TypeText, Data: models.Data{"content": "x"}},
		{ID: "a", Type: models.TypeText},
		{ID: "g", Type: models.TypeGrid, Data: models.Data{
			models.KeyColumns: float64(3),
			models.KeyGridColumns: []any{
				map[string]any{"id": "c1", "components": []any{
					map[string]any{"id": "inner", "type": "grid", "data": map[string]any{}},
				}},
			},
		}},
		{ID: "u", Type: "legacy-widget"},
	})

	got := tr.Components()
	assert.Equal(t, []string{"a", "g", "u"}, ids(got))

	grid := got[1]
	assert.Equal(t, 3, grid.ColumnCount())
	require.Len(t, grid.GridColumns(), 3)
	assert.Empty(t, grid.GridColumns()[0].Components)
	assert.Equal(t, "c1", grid.GridColumns()[0].ID)

	assert.Equal(t, models.Data{}, got[2].Data)
}

func TestVersionTracksAppliedMutations(t *testing.T) {
	tr := newTree(t)
	v0 := tr.Version()
	rec, _ := tr.Add(models.TypeText, TopLevel())
	assert.Greater(t, tr.Version(), v0)

	v1 := tr.Version()
	tr.Update("nope", map[string]any{"a": 1})
	tr.Remove("nope")
	assert.Equal(t, v1, tr.Version())

	tr.Update(rec.ID, map[string]any{"a": 1})
	assert.Greater(t, tr.Version(), v1)
}

func TestGridUpdateCannotResurrectRemovedChild(t *testing.T) {
	tr := newTree(t)
	grid, err := tr.Add(models.TypeGrid, TopLevel())
	require.NoError(t, err)
	child, err := tr.Add(models.TypeText, InColumn(grid.ID, 0))
	require.NoError(t, err)

	// снимок настроек grid, сделанный до удаления ребёнка
	stale, _ := tr.Get(grid.ID)
	require.True(t, tr.Remove(child.ID))

	cols := stale.GridColumns()
	payload := map[string]any{
		models.KeyGridColumns: []any{
			map[string]any{"id": cols[0].ID, "components": []any{
				map[string]any{"id": child.ID, "type": "text", "data": map[string]any{"content": "old"}},
			}},
			map[string]any{"id": cols[1].ID, "components": []any{}},
		},
		"gap": "lg",
	}
	got, applied := tr.Update(grid.ID, payload)
	require.True(t, applied)

	assert.False(t, tr.Contains(child.ID))
	assert.Empty(t, got.GridColumns()[0].Components)
	assert.Equal(t, "lg", got.Data["gap"])

	_, applied = tr.Update(child.ID, map[string]any{"content": "late"})
	assert.False(t, applied)
}

func TestGridUpdateDropsDuplicateChildIDs(t *testing.T) {
	tr := newTree(t)
	top, err := tr.Add(models.TypeText, TopLevel())
	require.NoError(t, err)
	grid, err := tr.Add(models.TypeGrid, TopLevel())
	require.NoError(t, err)
	cols := grid.GridColumns()

	payload := map[string]any{
		models.KeyGridColumns: []any{
			map[string]any{"id": cols[0].ID, "components": []any{
				map[string]any{"id": "dup", "type": "text", "data": map[string]any{"content": "first"}},
				map[string]any{"id": "dup", "type": "text", "data": map[string]any{"content": "second"}},
				map[string]any{"id": top.ID, "type": "text", "data": map[string]any{}},
			}},
			map[string]any{"id": cols[1].ID, "components": []any{
				map[string]any{"id": "dup", "type": "quote", "data": map[string]any{}},
				map[string]any{"id": grid.ID, "type": "text", "data": map[string]any{}},
			}},
		},
	}
	got, applied := tr.Update(grid.ID, payload)
	require.True(t, applied)

	gotCols := got.GridColumns()
	require.Len(t, gotCols[0].Components, 1)
	assert.Equal(t, "dup", gotCols[0].Components[0].ID)
	assert.Equal(t, "first", gotCols[0].Components[0].Data["content"])
	assert.Empty(t, gotCols[1].Components)

	rec, ok := tr.Get(top.ID)
	require.True(t, ok)
	assert.Equal(t, models.TypeText, rec.Type)
}

func TestReplaceDropsDuplicateIDsInsideColumns(t *testing.T) {
	tr := newTree(t)
	tr.Replace([]models.Component{
		{ID: "a", Type: models.TypeText},
		{ID: "g", Type: models.TypeGrid, Data: models.Data{
			models.KeyColumns: float64(2),
			models.KeyGridColumns: []any{
				map[string]any{"id": "c1", "components": []any{
					map[string]any{"id": "x", "type": "text", "data": map[string]any{}},
					map[string]any{"id": "x", "type": "text", "data": map[string]any{}},
					map[string]any{"id": "a", "type": "text", "data": map[string]any{}},
				}},
				map[string]any{"id": "c2", "components": []any{
					map[string]any{"id": "x", "type": "quote", "data": map[string]any{}},
				}},
			},
		}},
		{ID: "x", Type: models.TypeText},
	})

	got := tr.Components()
	assert.Equal(t, []string{"a", "g"}, ids(got))
	cols := got[1].GridColumns()
	assert.Equal(t, []string{"x"}, ids(cols[0].Components))
	assert.Empty(t, cols[1].Components)

	require.True(t, tr.Remove("x"))
	assert.False(t, tr.Contains("x"))
}
