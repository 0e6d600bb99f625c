package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"page-builder/internal/builder/controller"
	"page-builder/internal/builder/models"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/tree"
)

// ============================================================
// Component Commands
// ============================================================

func (c *CLI) handleAdd(args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return fmt.Errorf("usage: add <type> [<grid id> <column>]")
	}

	target := tree.TopLevel()
	if len(args) == 3 {
		col, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid column: %s", args[2])
		}
		target = tree.InColumn(args[1], col)
	}

	rec, err := c.ctl.Drop(controller.DragPayload{Type: models.ComponentType(args[0])}, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %s %s\n", rec.Type, rec.ID)
	return nil
}

func (c *CLI) handleSelect(args []string) error {
	switch len(args) {
	case 0:
		c.ctl.ClearSelection()
		fmt.Fprintln(c.out, "Selection cleared.")
		return nil
	case 1:
		if !c.ctl.Select(args[0]) {
			return fmt.Errorf("component not found: %s", args[0])
		}
		fmt.Fprintf(c.out, "Selected %s\n", args[0])
		return nil
	}
	return fmt.Errorf("usage: select [<id>]")
}

func (c *CLI) handleRemove(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: remove [<id>]")
	}
	id := c.ctl.Selected()
	if len(args) == 1 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("nothing selected")
	}
	if !c.ctl.Remove(id) {
		fmt.Fprintf(c.out, "Component %s is already gone.\n", id)
		return nil
	}
	if c.editor != nil && c.editor.Stale() {
		c.editor = nil
	}
	fmt.Fprintf(c.out, "Removed %s\n", id)
	return nil
}

// update <id> key=value... пишет сразу в дерево, минуя редактор.
func (c *CLI) handleUpdate(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: update <id> <key>=<value>...")
	}
	partial, err := parseFields(args[1:])
	if err != nil {
		return err
	}
	rec, ok := c.ctl.Update(args[0], partial)
	if !ok {
		fmt.Fprintf(c.out, "Component %s is gone, update ignored.\n", args[0])
		return nil
	}
	return c.printJSON(rec.Data)
}

func (c *CLI) handleReorder(args []string) error {
	if len(args) >= 3 && args[0] == "--grid" {
		col, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid column: %s", args[2])
		}
		return c.ctl.ReorderColumn(args[1], col, args[3:])
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: reorder <id>... | reorder --grid <grid id> <column> <id>...")
	}
	return c.ctl.Reorder(args)
}

func (c *CLI) handleColumns(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: columns <grid id> <2|3>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid column count: %s", args[1])
	}
	if _, err := c.ctl.SetColumnCount(args[0], n); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Grid %s now has %d columns.\n", args[0], n)
	return nil
}

// ============================================================
// Editor Commands
// ============================================================

func (c *CLI) handleEdit(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: edit [<id>]")
	}
	id := c.ctl.Selected()
	if len(args) == 1 {
		id = args[0]
	}
	buf, ok := c.ctl.OpenEditor(id)
	if !ok {
		return fmt.Errorf("component not found: %s", id)
	}
	c.ctl.Select(id)
	c.editor = buf

	if grid, col, nested := buf.Parent(); nested {
		fmt.Fprintf(c.out, "Editing %s %s in grid %s column %d\n", buf.Type(), buf.ID(), grid, col)
	} else {
		fmt.Fprintf(c.out, "Editing %s %s\n", buf.Type(), buf.ID())
	}
	return c.printJSON(buf.View())
}

// set <key> <value> кладёт правку в редактор. Без открытого редактора
// открывает его на выделенной записи.
func (c *CLI) handleSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set <key> <value>")
	}
	if c.editor == nil {
		if err := c.handleEdit(nil); err != nil {
			return err
		}
	}
	c.editor.Set(args[0], parseValue(args[1]))
	return nil
}

func (c *CLI) handleCommit(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: commit")
	}
	if c.editor == nil {
		return fmt.Errorf("no open editor")
	}
	rec, ok := c.editor.Commit()
	if !ok {
		c.editor = nil
		fmt.Fprintln(c.out, "Component was removed, pending edits dropped.")
		return nil
	}
	return c.printJSON(rec.Data)
}

func (c *CLI) handleDiscard(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: discard")
	}
	if c.editor != nil {
		c.editor.Discard()
		c.editor = nil
	}
	return nil
}

// ============================================================
// View & Page Commands
// ============================================================

func (c *CLI) handleKey(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: key <delete|escape|save|preview>")
	}
	key, ok := controller.ParseKey(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", controller.ErrUnknownKey, args[0])
	}
	changed, err := c.ctl.HandleKey(ctx, key)
	if err != nil {
		return err
	}
	if c.editor != nil && c.editor.Stale() {
		c.editor = nil
	}
	if key == controller.KeyPreview {
		fmt.Fprintf(c.out, "Mode: %s\n", c.ctl.Mode())
	} else if !changed {
		fmt.Fprintln(c.out, "Nothing to do.")
	}
	return nil
}

func (c *CLI) handleZoom(args []string) error {
	switch {
	case len(args) == 0:
	case len(args) == 1 && args[0] == "in":
		c.ctl.ZoomIn()
	case len(args) == 1 && args[0] == "out":
		c.ctl.ZoomOut()
	case len(args) == 1:
		n, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
		if err != nil {
			return fmt.Errorf("invalid zoom: %s", args[0])
		}
		c.ctl.SetZoom(n)
	default:
		return fmt.Errorf("usage: zoom [in|out|<percent>]")
	}
	fmt.Fprintf(c.out, "Zoom: %d%%\n", c.ctl.Zoom())
	return nil
}

func (c *CLI) handleTab(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tab <components|settings|page>")
	}
	return c.ctl.SetTab(controller.Tab(args[0]))
}

func (c *CLI) handleTitle(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: title \"<page title>\"")
	}
	c.ctl.SetTitle(args[0])
	return nil
}

func (c *CLI) handleSettings(args []string) error {
	if len(args) == 0 {
		return c.printJSON(c.ctl.Settings())
	}

	var patch models.PageSettings
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid setting %q, expected key=value", arg)
		}
		switch key {
		case "background", "backgroundColor":
			patch.BackgroundColor = value
		case "text", "textColor":
			patch.TextColor = value
		case "font", "fontFamily":
			patch.FontFamily = value
		case "template":
			patch.Template = value
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
	}
	return c.printJSON(c.ctl.UpdateSettings(patch))
}

// ============================================================
// Persistence Commands
// ============================================================

func (c *CLI) handleSave(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: save")
	}
	id, err := c.ctl.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved page %s\n", id)
	return nil
}

func (c *CLI) handlePublish(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: publish")
	}
	id, err := c.ctl.Publish(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Published page %s\n", id)
	return nil
}

func (c *CLI) handleLoad(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: load <page id>")
	}
	if err := c.ctl.Load(ctx, args[0]); err != nil {
		return err
	}
	c.editor = nil
	fmt.Fprintf(c.out, "Loaded %q with %d components.\n", c.ctl.Title(), len(c.ctl.Components()))
	return nil
}

func (c *CLI) handleList(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: list")
	}
	pages, err := c.pages.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve pages: %w", err)
	}
	if len(pages) == 0 {
		fmt.Fprintln(c.out, "No pages saved yet.")
		return nil
	}
	for _, p := range pages {
		mark := " "
		if p.Published {
			mark = "+"
		}
		fmt.Fprintf(c.out, "%s %s  %s  %s\n", mark, p.ID, p.UpdatedAt.Format("2006-01-02 15:04"), p.Title)
	}
	return nil
}

// ============================================================
// Output Commands
// ============================================================

// show печатает дерево. Выделенная запись отмечена *, колонки grid вложены.
func (c *CLI) handleShow(args []string) error {
	if len(args) == 1 {
		rec, ok := c.ctl.Get(args[0])
		if !ok {
			return fmt.Errorf("component not found: %s", args[0])
		}
		return c.printJSON(rec)
	}
	if len(args) > 1 {
		return fmt.Errorf("usage: show [<id>]")
	}

	state := c.ctl.State()
	fmt.Fprintf(c.out, "Page %q  zoom %d%%  tab %s  mode %s\n", state.Title, state.Zoom, state.Tab, state.Mode)
	if len(state.Components) == 0 {
		fmt.Fprintln(c.out, "  (empty canvas)")
	}
	for _, rec := range state.Components {
		c.printComponent(rec, 1, state.Selected)
	}
	for _, fx := range state.Effects {
		fmt.Fprintf(c.out, "  ~ %s effect on (%s)\n", fx.Type, fx.ID)
	}
	return nil
}

func (c *CLI) printComponent(rec models.Component, depth int, selected string) {
	mark := " "
	if rec.ID == selected {
		mark = "*"
	}
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(c.out, "%s%s %s (%s)\n", indent, mark, rec.Type, rec.ID)

	if !rec.IsGrid() {
		return
	}
	for i, col := range rec.GridColumns() {
		if i >= rec.ColumnCount() {
			fmt.Fprintf(c.out, "%s  [column %d hidden, %d kept]\n", indent, i, len(col.Components))
			continue
		}
		fmt.Fprintf(c.out, "%s  [column %d]\n", indent, i)
		for _, child := range col.Components {
			c.printComponent(child, depth+2, selected)
		}
	}
}

func (c *CLI) handleRender(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: render [edit|preview|inline]")
	}
	mode := c.ctl.Mode()
	if len(args) == 1 {
		m, ok := render.ParseMode(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", render.ErrUnknownMode, args[0])
		}
		mode = m
	}
	html, err := c.ctl.RenderPageMode(mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, html)
	return nil
}

func (c *CLI) printJSON(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(raw))
	return nil
}

// parseFields разбирает key=value аргументы.
func parseFields(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", arg)
		}
		out[key] = parseValue(value)
	}
	return out, nil
}

// parseValue понимает JSON литералы (числа, true/false, массивы, объекты),
// всё остальное остаётся строкой.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
