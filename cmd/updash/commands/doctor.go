package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/app/doctor"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/view"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks of the dashboard connection and local state.")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	out := c.rootCmd.Stdout

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	// A missing URL is reported as a failed check.
	var client view.ViewFetcher
	if c.rootCmd.URL != "" {
		dc, err := c.rootCmd.newClient()
		if err != nil {
			return err
		}
		client = dc
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{
		Client:     client,
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	results := svc.Run(ctx, doctor.Request{
		APIKey: c.rootCmd.APIKey,
		Agent:  c.rootCmd.Profile.Agent,
	})

	fmt.Fprintf(out, "\nChecking %s...\n", orNone(c.rootCmd.URL))
	for _, r := range results {
		fmt.Fprintf(out, "  %s %-20s %s\n", getStatusIcon(r.Status), r.ID, r.Message)
	}

	// Summary
	_, warnings, errs := model.CountByStatus(results)
	fmt.Fprintln(out)
	if errs == 0 && warnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if errs > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", errs))
		}
		if warnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", warnings))
		}
		fmt.Fprintln(out, strings.Join(summary, ", "))
	}

	if model.HasErrors(results) {
		return fmt.Errorf("preflight checks failed with %d error(s)", errs)
	}

	return nil
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}

func orNone(url string) string {
	if url == "" {
		return "(no dashboard url)"
	}
	return url
}
