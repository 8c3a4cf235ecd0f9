package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/app/taskstatus"
	"github.com/slok/updash/internal/model"
)

type TaskStatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	wait   bool
	taskID string
	format string
}

// NewTaskStatusCommand returns the task status command.
func NewTaskStatusCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskStatusCommand {
	c := &TaskStatusCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("status", "Show the current status of a task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	addFormatFlag(c.Cmd, &c.format)

	return c
}

// NewTaskWaitCommand returns the task wait command.
func NewTaskWaitCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskStatusCommand {
	c := &TaskStatusCommand{rootCmd: rootCmd, wait: true}

	c.Cmd = parent.Command("wait", "Wait until a task is finished.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	addFormatFlag(c.Cmd, &c.format)

	return c
}

func (c TaskStatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskStatusCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	p, err := c.rootCmd.newPoller(client)
	if err != nil {
		return err
	}

	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		Client: client,
		Poller: p,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, taskstatus.Request{
		TaskID: c.taskID,
		Wait:   c.wait,
		OnUpdate: func(s model.TaskStatus) {
			c.rootCmd.Logger.Infof("Task %s status: %s", c.taskID, s)
		},
	})
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintTask(*task); err != nil {
		return fmt.Errorf("could not print task: %w", err)
	}

	return nil
}
