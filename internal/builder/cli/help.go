package cli

import (
	"fmt"
	"sort"
)

func (c *CLI) handleHelp(args []string) error {
	switch len(args) {
	case 0:
		names := make([]string, 0, len(commandHelp))
		for name := range commandHelp {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(c.out, "Available commands:")
		for _, name := range names {
			fmt.Fprintf(c.out, "  %s\n", name)
		}
		fmt.Fprintln(c.out, "\nUse 'help <command>' for more information about a specific command.")
		return nil
	case 1:
		help, ok := commandHelp[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintln(c.out, help)
		return nil
	}
	return fmt.Errorf("usage: help [<command>]")
}

// commandHelp contains help text for each command.
var commandHelp = map[string]string{
	"add": `Syntax: add <type> [<grid id> <column>]
Description: Drops a component from the palette onto the canvas or into a grid column and selects it.
Example: add header
Example: add text 3f2c... 1`,

	"select": `Syntax: select [<id>]
Description: Selects a component. Without an id clears the selection.
Example: select 3f2c...`,

	"remove": `Syntax: remove [<id>]
Description: Removes a component (the selected one by default). Removing a grid removes its children.
Alias: rm`,

	"update": `Syntax: update <id> <key>=<value>...
Description: Merges fields into the component data right away. Values are parsed as JSON when possible.
Example: update 3f2c... title="Hello world" level=2`,

	"edit": `Syntax: edit [<id>]
Description: Opens the settings editor on a component (the selected one by default) and prints its data.`,

	"set": `Syntax: set <key> <value>
Description: Stages a field change in the open editor. Nothing reaches the page until 'commit'.
Example: set label "Buy now"`,

	"commit": `Syntax: commit
Description: Applies the staged editor changes. If the component was removed meanwhile, the changes are dropped.`,

	"discard": `Syntax: discard
Description: Drops the staged editor changes and closes the editor.`,

	"reorder": `Syntax: reorder <id>... | reorder --grid <grid id> <column> <id>...
Description: Sets a new order. The ids must be exactly the current components of the list.`,

	"columns": `Syntax: columns <grid id> <2|3>
Description: Changes the number of visible grid columns. Hidden columns keep their components.`,

	"key": `Syntax: key <delete|escape|save|preview>
Description: Sends a keyboard shortcut. Also accepts backspace, esc, ctrl+s, ctrl+p.`,

	"zoom": `Syntax: zoom [in|out|<percent>]
Description: Shows or changes the canvas zoom (25-200%, step 10).`,

	"tab": `Syntax: tab <components|settings|page>
Description: Switches the side panel tab.`,

	"preview": `Syntax: preview
Description: Toggles between edit and preview mode.`,

	"title": `Syntax: title "<page title>"
Description: Sets the page title.`,

	"settings": `Syntax: settings [<key>=<value>...]
Description: Shows or updates page settings: background, text, font, template.
Example: settings background=#000000 text=#ffffff`,

	"save": `Syntax: save
Description: Saves the page. On failure all edits stay in place and can be saved again.`,

	"publish": `Syntax: publish
Description: Saves the page and marks it published.`,

	"load": `Syntax: load <page id>
Description: Replaces the editor content with a stored page.`,

	"list": `Syntax: list
Description: Lists stored pages, newest first. Published pages are marked with +.`,

	"show": `Syntax: show [<id>]
Description: Prints the component tree, or one component as JSON.`,

	"render": `Syntax: render [edit|preview|inline]
Description: Prints the page HTML in the given mode (current mode by default).`,

	"exit": `Syntax: exit
Description: Leaves the editor. Unsaved changes are lost.
Alias: quit`,
}
