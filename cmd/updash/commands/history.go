package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/app/history"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	machineID string
	limit     int
	format    string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the actions sent from this machine.")
	c.Cmd.Flag("machine", "Only list the actions of a machine.").StringVar(&c.machineID)
	c.Cmd.Flag("limit", "Maximum number of actions, negative lists all.").Default(fmt.Sprint(history.DefaultLimit)).IntVar(&c.limit)
	addFormatFlag(c.Cmd, &c.format)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	actions, err := svc.Run(ctx, history.Request{MachineID: c.machineID, Limit: c.limit})
	if err != nil {
		return fmt.Errorf("could not list history: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintHistory(actions); err != nil {
		return fmt.Errorf("could not print history: %w", err)
	}

	return nil
}
