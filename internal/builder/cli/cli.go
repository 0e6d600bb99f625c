package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"page-builder/internal/builder/controller"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
)

// ErrExit: команда exit/quit. Оборачивает io.EOF, чтобы главный цикл
// завершался тем же путём, что и по Ctrl+D.
var ErrExit = fmt.Errorf("exit requested: %w", io.EOF)

// ============================================================
// REPL
// ============================================================

// CLI: терминальный редактор страницы поверх одного контроллера.
type CLI struct {
	ctl    *controller.Controller
	pages  repository.PageRepository
	rl     *readline.Instance
	out    io.Writer
	editor *controller.EditBuffer

	Prompt string
}

// New собирает REPL. rl может быть nil (скрипты и тесты).
func New(ctl *controller.Controller, pages repository.PageRepository, rl *readline.Instance, out io.Writer) *CLI {
	if out == nil {
		out = os.Stdout
	}
	c := &CLI{ctl: ctl, pages: pages, rl: rl, out: out}
	c.UpdatePrompt()
	return c
}

// Run читает и выполняет одну строку.
func (c *CLI) Run(ctx context.Context) error {
	if c.rl == nil {
		return io.EOF
	}
	line, err := c.rl.Readline()
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	return c.ExecuteCommand(ctx, ParseArgs(line))
}

// ExecuteScript выполняет файл построчно. Пустые строки и # комментарии пропускаются.
func (c *CLI) ExecuteScript(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := c.ExecuteCommand(ctx, ParseArgs(line)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	return scanner.Err()
}

// UpdatePrompt показывает страницу, режим и несохранённые правки.
func (c *CLI) UpdatePrompt() {
	name := c.ctl.Title()
	if name == "" {
		name = "untitled"
	}
	var b strings.Builder
	b.WriteString(name)
	if c.ctl.Dirty() {
		b.WriteString("*")
	}
	if c.ctl.Mode() != render.ModeEdit {
		fmt.Fprintf(&b, " [%s]", c.ctl.Mode())
	}
	if c.editor != nil {
		fmt.Fprintf(&b, " {%s}", c.editor.ID())
	}
	b.WriteString("> ")
	c.Prompt = b.String()
	if c.rl != nil {
		c.rl.SetPrompt(c.Prompt)
	}
}

// ParseArgs режет строку по пробелам, учитывая двойные кавычки.
func ParseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoted := false

	for _, char := range input {
		switch char {
		case '"':
			inQuotes = !inQuotes
			quoted = true
		case ' ', '\t':
			if inQuotes {
				current.WriteRune(char)
				continue
			}
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args
}

// ExecuteCommand выполняет команду и обновляет prompt.
func (c *CLI) ExecuteCommand(ctx context.Context, args []string) error {
	defer c.UpdatePrompt()
	return c.execute(ctx, args)
}

func (c *CLI) execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}

	switch strings.ToLower(args[0]) {
	case "add":
		return c.handleAdd(args[1:])
	case "select":
		return c.handleSelect(args[1:])
	case "remove", "rm":
		return c.handleRemove(args[1:])
	case "update":
		return c.handleUpdate(args[1:])
	case "edit":
		return c.handleEdit(args[1:])
	case "set":
		return c.handleSet(args[1:])
	case "commit":
		return c.handleCommit(args[1:])
	case "discard":
		return c.handleDiscard(args[1:])
	case "reorder":
		return c.handleReorder(args[1:])
	case "columns":
		return c.handleColumns(args[1:])
	case "key":
		return c.handleKey(ctx, args[1:])
	case "zoom":
		return c.handleZoom(args[1:])
	case "tab":
		return c.handleTab(args[1:])
	case "preview":
		return c.handleKey(ctx, []string{"preview"})
	case "title":
		return c.handleTitle(args[1:])
	case "settings":
		return c.handleSettings(args[1:])
	case "save":
		return c.handleSave(ctx, args[1:])
	case "publish":
		return c.handlePublish(ctx, args[1:])
	case "load":
		return c.handleLoad(ctx, args[1:])
	case "list":
		return c.handleList(ctx, args[1:])
	case "show":
		return c.handleShow(args[1:])
	case "render":
		return c.handleRender(args[1:])
	case "help":
		return c.handleHelp(args[1:])
	case "exit", "quit":
		if c.ctl.Dirty() {
			fmt.Fprintln(c.out, "Warning: unsaved changes are discarded.")
		}
		return ErrExit
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
