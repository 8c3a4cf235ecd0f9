package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/app/blacklist"
	"github.com/slok/updash/internal/model"
)

type BlacklistSetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	machineID  string
	keywords   []string
	useDefault bool
	format     string
}

// NewBlacklistSetCommand returns the blacklist set command.
func NewBlacklistSetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *BlacklistSetCommand {
	c := &BlacklistSetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("set", "Replace the package blacklist of a machine and refresh its report.")
	c.Cmd.Arg("machine", "Machine ID.").Required().StringVar(&c.machineID)
	c.Cmd.Arg("keywords", "Blacklist keywords, packages matching any of them are ignored.").StringsVar(&c.keywords)
	c.Cmd.Flag("default", "Add the dashboard default keywords.").BoolVar(&c.useDefault)
	addFormatFlag(c.Cmd, &c.format)

	return c
}

func (c BlacklistSetCommand) Name() string { return c.Cmd.FullCommand() }

func (c BlacklistSetCommand) Run(ctx context.Context) error {
	keywords := c.keywords
	if c.useDefault {
		keywords = append(append([]string{}, model.DefaultBlacklistKeywords...), keywords...)
	}

	client, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	dispatcher, err := c.rootCmd.newDispatcher(ctx, client, repo)
	if err != nil {
		return err
	}

	svc, err := blacklist.NewService(blacklist.ServiceConfig{
		Client:     client,
		Dispatcher: dispatcher,
		Notifier:   c.rootCmd.newNotifier(ctx, repo),
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	rec, err := svc.Run(ctx, blacklist.Request{MachineID: c.machineID, Keywords: keywords})
	if err != nil {
		return fmt.Errorf("could not set blacklist: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintAction(rec); err != nil {
		return fmt.Errorf("could not print action: %w", err)
	}

	return nil
}
