package controller

import (
	"context"
	"fmt"
	"strings"

	"page-builder/internal/builder/render"
)

// ============================================================
// Keyboard Shortcuts
// ============================================================

type Key string

const (
	KeyDelete  Key = "delete"
	KeyEscape  Key = "escape"
	KeySave    Key = "save"
	KeyPreview Key = "preview"
)

// ParseKey понимает имена клавиш и привычные сочетания (backspace, esc, ctrl+s, ctrl+p).
func ParseKey(s string) (Key, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delete", "del", "backspace":
		return KeyDelete, true
	case "escape", "esc":
		return KeyEscape, true
	case "save", "ctrl+s", "cmd+s", "meta+s":
		return KeySave, true
	case "preview", "ctrl+p", "cmd+p", "meta+p":
		return KeyPreview, true
	}
	return "", false
}

// HandleKey выполняет шорткат. Возвращает true, если что-то изменилось.
// Delete без выделения и повторный Escape ничего не делают.
func (c *Controller) HandleKey(ctx context.Context, key Key) (bool, error) {
	switch key {
	case KeyDelete:
		// в preview холст не редактируется
		if c.mode == render.ModePreview {
			return false, nil
		}
		return c.DeleteSelected(), nil
	case KeyEscape:
		had := c.selected != ""
		c.ClearSelection()
		return had, nil
	case KeySave:
		if _, err := c.Save(ctx); err != nil {
			return false, err
		}
		return true, nil
	case KeyPreview:
		c.TogglePreview()
		return true, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}
