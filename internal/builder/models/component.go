package models

import (
	"encoding/json"
	"math"
)

// ============================================================
// Component Types
// ============================================================

type ComponentType string

const (
	TypeText      ComponentType = "text"
	TypeImage     ComponentType = "image"
	TypeButton    ComponentType = "button"
	TypeHeader    ComponentType = "header"
	TypeHero      ComponentType = "hero"
	TypeGallery   ComponentType = "gallery"
	TypeQuote     ComponentType = "quote"
	TypeCountdown ComponentType = "countdown"
	TypeTimeline  ComponentType = "timeline"
	TypeMessage   ComponentType = "message"
	TypeFooter    ComponentType = "footer"
	TypeVideo     ComponentType = "video"
	TypeMusic     ComponentType = "music"
	TypeGrid      ComponentType = "grid"

	// Визуальные эффекты рисуются оверлеем поверх всего холста.
	TypeSnowfall ComponentType = "snowfall"
	TypeHearts   ComponentType = "hearts"
	TypeConfetti ComponentType = "confetti"
	TypeSparkles ComponentType = "sparkles"
)

// Ключи data, которые понимает ядро.
const (
	KeyColumns     = "columns"
	KeyGridColumns = "gridColumns"
	KeyEnabled     = "enabled"
)

// ============================================================
// Component Record
// ============================================================

// Data: payload компонента. Значения держим в JSON-совместимом виде
// (string, float64, bool, []any, map[string]any), у grid []Column.
type Data map[string]any

type Component struct {
	ID   string        `json:"id"`
	Type ComponentType `json:"type"`
	Data Data          `json:"data"`
}

type Column struct {
	ID         string      `json:"id"`
	Components []Component `json:"components"`
}

// Clone возвращает полностью независимую копию записи.
func (c Component) Clone() Component {
	return Component{
		ID:   c.ID,
		Type: c.Type,
		Data: c.Data.Clone(),
	}
}

func (c Component) IsGrid() bool {
	return c.Type == TypeGrid
}

// ColumnCount возвращает число активных колонок grid.
func (c Component) ColumnCount() int {
	n, _ := toInt(c.Data[KeyColumns])
	return n
}

// GridColumns возвращает физические колонки grid (включая скрытые).
func (c Component) GridColumns() []Column {
	cols, _ := c.Data[KeyGridColumns].([]Column)
	return cols
}

// Enabled читает флаг data.enabled (только настоящий bool true).
func (c Component) Enabled() bool {
	v, ok := c.Data[KeyEnabled].(bool)
	return ok && v
}

func (c *Component) UnmarshalJSON(raw []byte) error {
	type alias Component
	var a alias
	if err := json.Unmarshal(raw, &a); err != nil {
		return err
	}
	*c = Component(a)
	if c.Type == TypeGrid {
		NormalizeGrid(c.Data)
	}
	return nil
}

func (col Column) Clone() Column {
	out := Column{ID: col.ID}
	if col.Components != nil {
		out.Components = make([]Component, len(col.Components))
		for i, child := range col.Components {
			out.Components[i] = child.Clone()
		}
	}
	return out
}

// ============================================================
// Data helpers
// ============================================================

func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge делает shallow merge: ключи partial перезаписывают существующие.
func (d Data) Merge(partial map[string]any) Data {
	out := d.Clone()
	if out == nil {
		out = Data{}
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Data:
		return val.Clone()
	case map[string]any:
		return map[string]any(Data(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []Column:
		out := make([]Column, len(val))
		for i, col := range val {
			out[i] = col.Clone()
		}
		return out
	case []Component:
		out := make([]Component, len(val))
		for i, comp := range val {
			out[i] = comp.Clone()
		}
		return out
	case Column:
		return val.Clone()
	case Component:
		return val.Clone()
	default:
		return v
	}
}

// NormalizeGrid приводит data grid к типизированному виду после JSON:
// columns → int, gridColumns → []Column. Вложенные grid здесь не трогаем:
// это инвариант дерева, а не модели.
func NormalizeGrid(d Data) {
	if d == nil {
		return
	}
	if raw, ok := d[KeyColumns]; ok {
		if n, ok := toInt(raw); ok {
			d[KeyColumns] = n
		}
	}
	raw, ok := d[KeyGridColumns]
	if !ok {
		return
	}
	switch cols := raw.(type) {
	case []Column:
		return
	case []any:
		out := make([]Column, 0, len(cols))
		for _, item := range cols {
			if col, ok := decodeColumn(item); ok {
				out = append(out, col)
			}
		}
		d[KeyGridColumns] = out
	default:
		d[KeyGridColumns] = []Column{}
	}
}

func decodeColumn(v any) (Column, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Column{}, false
	}
	col := Column{Components: []Component{}}
	col.ID, _ = m["id"].(string)
	items, _ := m["components"].([]any)
	for _, item := range items {
		if comp, ok := decodeComponent(item); ok {
			col.Components = append(col.Components, comp)
		}
	}
	return col, true
}

func decodeComponent(v any) (Component, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Component{}, false
	}
	id, _ := m["id"].(string)
	typ, _ := m["type"].(string)
	if id == "" || typ == "" {
		return Component{}, false
	}
	data, _ := m["data"].(map[string]any)
	comp := Component{ID: id, Type: ComponentType(typ), Data: Data(data)}
	if comp.Data == nil {
		comp.Data = Data{}
	}
	if comp.Type == TypeGrid {
		NormalizeGrid(comp.Data)
	}
	return comp, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
