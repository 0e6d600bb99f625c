package registry

import (
	"encoding/json"
	"fmt"

	"page-builder/internal/builder/models"
)

// ============================================================
// Registry Entry
// ============================================================

type Category string

const (
	CategoryBasic       Category = "basic"
	CategoryMedia       Category = "media"
	CategoryLayout      Category = "layout"
	CategoryInteractive Category = "interactive"
	CategoryEffects     Category = "effects"
)

// categoryOrder задаёт порядок групп в All().
var categoryOrder = []Category{
	CategoryBasic,
	CategoryMedia,
	CategoryLayout,
	CategoryInteractive,
	CategoryEffects,
}

type Entry struct {
	Type        models.ComponentType `json:"type"`
	Name        string               `json:"name"`
	Icon        string               `json:"icon"`
	Category    Category             `json:"category"`
	Description string               `json:"description"`
	Effect      bool                 `json:"effect,omitempty"`

	// Шаблон data хранится как JSON: каждый DefaultData() декодирует его заново,
	// поэтому две записи одного типа никогда не делят вложенные map/slice.
	Template json.RawMessage `json:"-"`
}

// DefaultData возвращает свежую копию data по умолчанию.
func (e Entry) DefaultData() models.Data {
	data := models.Data{}
	if len(e.Template) == 0 {
		return data
	}
	if err := json.Unmarshal(e.Template, &data); err != nil {
		// шаблон проверяется в New, сюда попасть можно только при ручной сборке Entry
		panic(fmt.Sprintf("registry: broken template for %q: %v", e.Type, err))
	}
	if e.Type == models.TypeGrid {
		models.NormalizeGrid(data)
	}
	return data
}

// MarshalJSON отдаёт entry вместе с default data (для UI каталога).
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		DefaultData models.Data `json:"default_data"`
	}{
		alias:       alias(e),
		DefaultData: e.DefaultData(),
	})
}

// ============================================================
// Registry
// ============================================================

// Registry: read-only каталог типов. Создаётся явно и передаётся
// в контроллер/дерево/рендерер, глобального экземпляра нет.
type Registry struct {
	entries map[models.ComponentType]Entry
	ordered []Entry
}

// New собирает реестр. Дубликаты и битые шаблоны, ошибка программиста.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[models.ComponentType]Entry, len(entries))}
	for _, e := range entries {
		if e.Type == "" {
			return nil, fmt.Errorf("registry: entry with empty type")
		}
		if _, dup := r.entries[e.Type]; dup {
			return nil, fmt.Errorf("registry: duplicate type %q", e.Type)
		}
		if len(e.Template) > 0 {
			var probe map[string]any
			if err := json.Unmarshal(e.Template, &probe); err != nil {
				return nil, fmt.Errorf("registry: template for %q: %w", e.Type, err)
			}
		}
		if e.Category == "" {
			e.Category = CategoryBasic
		}
		r.entries[e.Type] = e
	}

	seen := make(map[Category]bool, len(categoryOrder))
	for _, cat := range categoryOrder {
		seen[cat] = true
		r.ordered = append(r.ordered, r.inCategory(entries, cat)...)
	}
	// неизвестные категории идут в конец, в порядке объявления
	for _, e := range entries {
		cat := e.Category
		if cat == "" {
			cat = CategoryBasic
		}
		if !seen[cat] {
			seen[cat] = true
			r.ordered = append(r.ordered, r.inCategory(entries, cat)...)
		}
	}
	return r, nil
}

// MustNew: как New, но паникует.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) inCategory(entries []Entry, cat Category) []Entry {
	var out []Entry
	for _, e := range entries {
		if r.entries[e.Type].Category == cat {
			out = append(out, r.entries[e.Type])
		}
	}
	return out
}

func (r *Registry) Lookup(t models.ComponentType) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[t]
	return e, ok
}

// MustLookup паникует на неизвестном типе: вызывать только с типами из кода.
func (r *Registry) MustLookup(t models.ComponentType) Entry {
	e, ok := r.Lookup(t)
	if !ok {
		panic(fmt.Sprintf("registry: unknown component type %q", t))
	}
	return e
}

// All возвращает все записи, сгруппированные по категориям, в стабильном порядке.
func (r *Registry) All() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Has(t models.ComponentType) bool {
	_, ok := r.Lookup(t)
	return ok
}

// IsEffect: тип относится к полноэкранным визуальным эффектам.
func (r *Registry) IsEffect(t models.ComponentType) bool {
	e, ok := r.Lookup(t)
	return ok && e.Effect
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}
