package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/model"
)

const (
	themeOpGet    = "get"
	themeOpSet    = "set"
	themeOpToggle = "toggle"
)

type ThemeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	op     string
	theme  string
	format string
}

// NewThemeCommands returns the theme get, set and toggle commands.
func NewThemeCommands(rootCmd *RootCommand, parent *kingpin.CmdClause) []*ThemeCommand {
	get := &ThemeCommand{rootCmd: rootCmd, op: themeOpGet}
	get.Cmd = parent.Command(themeOpGet, "Show the current theme.").Default()
	addFormatFlag(get.Cmd, &get.format)

	set := &ThemeCommand{rootCmd: rootCmd, op: themeOpSet}
	set.Cmd = parent.Command(themeOpSet, "Set the theme.")
	set.Cmd.Arg("theme", "Theme name.").Required().EnumVar(&set.theme, string(model.ThemeLight), string(model.ThemeDark))
	addFormatFlag(set.Cmd, &set.format)

	toggle := &ThemeCommand{rootCmd: rootCmd, op: themeOpToggle}
	toggle.Cmd = parent.Command(themeOpToggle, "Switch between the dark and light themes.")
	addFormatFlag(toggle.Cmd, &toggle.format)

	return []*ThemeCommand{get, set, toggle}
}

func (c ThemeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ThemeCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := c.rootCmd.newThemeService(repo)
	if err != nil {
		return err
	}

	var t model.Theme
	switch c.op {
	case themeOpSet:
		t, err = svc.Set(ctx, c.theme)
	case themeOpToggle:
		t, err = svc.Toggle(ctx)
	default:
		t, err = svc.Get(ctx)
	}
	if err != nil {
		return fmt.Errorf("could not %s theme: %w", c.op, err)
	}

	if err := c.rootCmd.printer(c.format).PrintTheme(t); err != nil {
		return fmt.Errorf("could not print theme: %w", err)
	}

	return nil
}
