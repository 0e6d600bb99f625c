package render

import (
	"fmt"
	"html/template"

	"page-builder/internal/builder/models"
	"page-builder/internal/builder/registry"
)

// ============================================================
// Page Rendering
// ============================================================

type pageView struct {
	Title    string
	Mode     Mode
	Settings models.PageSettings
	Blocks   []template.HTML
	Effects  []models.Component
}

// RenderPage собирает полный HTML документ страницы.
func (d *Dispatcher) RenderPage(doc models.PageDocument, mode Mode) (string, error) {
	if _, ok := ParseMode(string(mode)); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if mode == "" {
		mode = ModeEdit
	}

	v := pageView{
		Title:    doc.Title,
		Mode:     mode,
		Settings: doc.Settings,
		Effects:  ActiveEffects(d.reg, doc.Components),
	}
	for _, c := range doc.Components {
		el := d.Render(c, mode, nil)
		if el.HTML == "" {
			continue
		}
		v.Blocks = append(v.Blocks, el.HTML)
	}

	out, err := d.execErr("page", v)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return string(out), nil
}

// ActiveEffects выбирает эффекты верхнего уровня с data.enabled == true.
// Считается заново на каждый вызов, отдельного состояния нет.
func ActiveEffects(reg *registry.Registry, components []models.Component) []models.Component {
	var out []models.Component
	for _, c := range components {
		if reg.IsEffect(c.Type) && c.Enabled() {
			out = append(out, c.Clone())
		}
	}
	return out
}
