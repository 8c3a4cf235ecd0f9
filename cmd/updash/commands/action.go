package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/alecthomas/kingpin/v2"
	"golang.org/x/sync/errgroup"

	"github.com/slok/updash/internal/app/dispatch"
	"github.com/slok/updash/internal/model"
)

// ActionCommand sends one dashboard action kind. Commands accepting more than one
// machine send an independent action per machine concurrently.
type ActionCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	kind       model.ActionKind
	machineIDs []string
	machineID  string
	packageID  string
	updateID   string
	appName    string
	force      bool
	format     string
}

// NewActionCommand returns the command of an action kind.
func NewActionCommand(rootCmd *RootCommand, app *kingpin.Application, kind model.ActionKind, help string) *ActionCommand {
	c := &ActionCommand{rootCmd: rootCmd, kind: kind}
	spec, _ := kind.Spec()

	c.Cmd = app.Command(string(kind), help)
	switch {
	case spec.NeedsPackage:
		c.Cmd.Arg("machine", "Machine ID.").Required().StringVar(&c.machineID)
		c.Cmd.Arg("package", "Package ID.").Required().StringVar(&c.packageID)
	case spec.TargetsMachine:
		c.Cmd.Arg("machine", "Machine IDs.").Required().StringsVar(&c.machineIDs)
	}

	switch kind {
	case model.ActionUpdate:
		c.Cmd.Flag("update-id", "Dashboard update ID.").StringVar(&c.updateID)
		fallthrough
	case model.ActionUninstall:
		c.Cmd.Flag("app-name", "Application name shown on the confirmation.").StringVar(&c.appName)
		c.Cmd.Flag("force", "Close the application if it's running.").BoolVar(&c.force)
	case model.ActionUpdateOS:
		c.Cmd.Flag("force", "Reboot without asking the user.").BoolVar(&c.force)
	}
	addFormatFlag(c.Cmd, &c.format)

	return c
}

func (c ActionCommand) Name() string { return c.Cmd.FullCommand() }

func (c ActionCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := c.rootCmd.newDispatcher(ctx, client, repo)
	if err != nil {
		return err
	}

	reqs, err := c.requests()
	if err != nil {
		return err
	}

	records := make([]model.ActionRecord, len(reqs))
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			rec, err := c.run(ctx, svc, req)
			mu.Lock()
			records[i] = rec
			mu.Unlock()
			return err
		})
	}
	runErr := g.Wait()

	p := c.rootCmd.printer(c.format)
	if len(records) == 1 {
		if records[0].ID != "" {
			if err := p.PrintAction(records[0]); err != nil {
				return fmt.Errorf("could not print action: %w", err)
			}
		}
	} else {
		var done []model.ActionRecord
		for _, r := range records {
			if r.ID != "" {
				done = append(done, r)
			}
		}
		if err := p.PrintHistory(done); err != nil {
			return fmt.Errorf("could not print actions: %w", err)
		}
	}

	return runErr
}

func (c ActionCommand) run(ctx context.Context, svc *dispatch.Service, req model.ActionRequest) (model.ActionRecord, error) {
	res, err := svc.Dispatch(ctx, dispatch.Request{Action: req})
	if err != nil {
		return model.ActionRecord{}, err
	}

	if c.rootCmd.NoWait {
		res.Cancel()
		return res.Record, nil
	}

	return res.Wait()
}

func (c ActionCommand) requests() ([]model.ActionRequest, error) {
	spec, err := c.kind.Spec()
	if err != nil {
		return nil, err
	}

	base := model.ActionRequest{
		Kind:     c.kind,
		UpdateID: c.updateID,
		AppName:  c.appName,
		Force:    c.force,
	}

	if !spec.TargetsMachine {
		return []model.ActionRequest{base}, nil
	}

	if spec.NeedsPackage {
		base.MachineID = c.machineID
		base.PackageID = c.packageID
		return []model.ActionRequest{base}, nil
	}

	reqs := make([]model.ActionRequest, 0, len(c.machineIDs))
	for _, m := range c.machineIDs {
		r := base
		r.MachineID = m
		reqs = append(reqs, r)
	}

	return reqs, nil
}
