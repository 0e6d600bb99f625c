package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ============================================================
// Modes & Elements
// ============================================================

type Mode string

var ErrUnknownMode = errors.New("unknown render mode")

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
	ModeInline  Mode = "inline"
)

// ParseMode разбирает режим из строки запроса. Пустая строка означает edit.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeEdit:
		return ModeEdit, true
	case ModePreview:
		return ModePreview, true
	case ModeInline:
		return ModeInline, true
	}
	return "", false
}

// UpdateFunc получает id записи и partial data. Возвращает, применилось ли обновление.
type UpdateFunc func(id string, partial map[string]any) bool

// Element: результат рендера одной записи.
type Element struct {
	ID          string               `json:"id"`
	Type        models.ComponentType `json:"type"`
	Mode        Mode                 `json:"mode"`
	HTML        template.HTML        `json:"html"`
	Children    []Element            `json:"children,omitempty"`
	Placeholder bool                 `json:"placeholder,omitempty"`

	// Update уже знает id записи, рендерер передаёт только partial.
	Update func(partial map[string]any) bool `json:"-"`
}

// ============================================================
// Dispatcher
// ============================================================

type Dispatcher struct {
	reg *registry.Registry
	tpl *template.Template
	md  goldmark.Markdown
	log zerolog.Logger
}

type Option func(*Dispatcher)

func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher парсит шаблоны и проверяет, что у каждого типа реестра есть стратегия.
func NewDispatcher(reg *registry.Registry, opts ...Option) (*Dispatcher, error) {
	tpl, err := template.New("components").Funcs(sprig.HtmlFuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	d := &Dispatcher{
		reg: reg,
		tpl: tpl,
		md:  goldmark.New(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, entry := range reg.All() {
		name, ok := strategy(entry.Type)
		if !ok {
			return nil, fmt.Errorf("no renderer for component type %q", entry.Type)
		}
		if d.tpl.Lookup(name) == nil {
			return nil, fmt.Errorf("template %q for type %q is missing", name, entry.Type)
		}
	}
	return d, nil
}

// strategy: замкнутое множество рендереров. Новый тип в реестре без ветки
// здесь не пройдёт проверку в NewDispatcher.
func strategy(t models.ComponentType) (string, bool) {
	switch t {
	case models.TypeText:
		return "text", true
	case models.TypeHeader:
		return "header", true
	case models.TypeButton:
		return "button", true
	case models.TypeQuote:
		return "quote", true
	case models.TypeFooter:
		return "footer", true
	case models.TypeImage:
		return "image", true
	case models.TypeGallery:
		return "gallery", true
	case models.TypeVideo:
		return "video", true
	case models.TypeMusic:
		return "music", true
	case models.TypeHero:
		return "hero", true
	case models.TypeCountdown:
		return "countdown", true
	case models.TypeTimeline:
		return "timeline", true
	case models.TypeMessage:
		return "message", true
	case models.TypeGrid:
		return "grid", true
	case models.TypeSnowfall, models.TypeHearts, models.TypeConfetti, models.TypeSparkles:
		return "effect", true
	default:
		return "", false
	}
}

// bodyField: поле с текстом, который проходит через markdown.
func bodyField(t models.ComponentType) string {
	switch t {
	case models.TypeText:
		return "content"
	case models.TypeQuote:
		return "text"
	case models.TypeMessage:
		return "message"
	}
	return ""
}

type columnView struct {
	ID       string
	Children []template.HTML
}

type view struct {
	ID      string
	Type    models.ComponentType
	Mode    Mode
	Name    string
	Data    models.Data
	Body    template.HTML
	Enabled bool
	Columns []columnView
	Inner   template.HTML
}

// Render отрисовывает запись в заданном режиме. Никогда не падает:
// неизвестный тип и ошибки шаблона дают placeholder.
func (d *Dispatcher) Render(c models.Component, mode Mode, onUpdate UpdateFunc) Element {
	if _, ok := ParseMode(string(mode)); !ok || mode == "" {
		mode = ModeEdit
	}

	el := Element{
		ID:     c.ID,
		Type:   c.Type,
		Mode:   mode,
		Update: bindUpdate(c.ID, onUpdate),
	}

	name, ok := strategy(c.Type)
	if !ok || !d.reg.Has(c.Type) {
		d.log.Debug().Str("id", c.ID).Str("type", string(c.Type)).Msg("render placeholder for unknown type")
		el.Placeholder = true
		el.HTML = d.wrap(c, mode, d.exec("unknown", view{ID: c.ID, Type: c.Type, Mode: mode}))
		return el
	}

	v := view{
		ID:      c.ID,
		Type:    c.Type,
		Mode:    mode,
		Name:    d.entryName(c.Type),
		Data:    c.Data,
		Enabled: c.Enabled(),
	}
	if field := bodyField(c.Type); field != "" {
		v.Body = d.markdown(c.Data[field])
	}
	if c.IsGrid() {
		v.Columns, el.Children = d.gridColumns(c, mode, onUpdate)
	}

	inner, err := d.execErr(name, v)
	if err != nil {
		d.log.Warn().Err(err).Str("id", c.ID).Str("type", string(c.Type)).Msg("render failed, using placeholder")
		el.Placeholder = true
		inner = d.exec("unknown", view{ID: c.ID, Type: c.Type, Mode: mode})
	}

	// эффект в preview рисуется только оверлеем страницы
	if mode == ModePreview && d.reg.IsEffect(c.Type) {
		el.HTML = ""
		return el
	}
	el.HTML = d.wrap(c, mode, inner)
	return el
}

// gridColumns: в edit/inline дети рисуются карточками, в preview полноценно.
// Отрисовываются только активные колонки.
func (d *Dispatcher) gridColumns(grid models.Component, mode Mode, onUpdate UpdateFunc) ([]columnView, []Element) {
	cols := grid.GridColumns()
	active := min(grid.ColumnCount(), len(cols))

	views := make([]columnView, 0, active)
	var children []Element
	for _, col := range cols[:max(active, 0)] {
		cv := columnView{ID: col.ID}
		for _, child := range col.Components {
			if mode == ModePreview {
				el := d.Render(child, ModePreview, onUpdate)
				cv.Children = append(cv.Children, el.HTML)
				children = append(children, el)
				continue
			}
			card := d.exec("card", view{ID: child.ID, Type: child.Type, Name: d.entryName(child.Type)})
			cv.Children = append(cv.Children, card)
			children = append(children, Element{
				ID:     child.ID,
				Type:   child.Type,
				Mode:   mode,
				HTML:   card,
				Update: bindUpdate(child.ID, onUpdate),
			})
		}
		views = append(views, cv)
	}
	return views, children
}

func (d *Dispatcher) wrap(c models.Component, mode Mode, inner template.HTML) template.HTML {
	if mode == ModePreview {
		return inner
	}
	return d.exec("block", view{ID: c.ID, Type: c.Type, Mode: mode, Inner: inner})
}

func (d *Dispatcher) entryName(t models.ComponentType) string {
	if e, ok := d.reg.Lookup(t); ok && e.Name != "" {
		return e.Name
	}
	return string(t)
}

func (d *Dispatcher) execErr(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := d.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (d *Dispatcher) exec(name string, data any) template.HTML {
	out, err := d.execErr(name, data)
	if err != nil {
		d.log.Error().Err(err).Str("template", name).Msg("template execution failed")
		return ""
	}
	return out
}

// markdown рендерит текст через goldmark; сырой HTML отключён (дефолт goldmark).
func (d *Dispatcher) markdown(v any) template.HTML {
	s, ok := v.(string)
	if !ok || s == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(buf.String())
}

func bindUpdate(id string, onUpdate UpdateFunc) func(map[string]any) bool {
	return func(partial map[string]any) bool {
		if onUpdate == nil {
			return false
		}
		return onUpdate(id, partial)
	}
}
