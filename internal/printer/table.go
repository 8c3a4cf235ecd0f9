package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/updash/internal/model"
)

// TablePrinter prints dashboard information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

var _ Printer = &TablePrinter{}

// PrintHistory prints the recorded actions in a table format.
func (t *TablePrinter) PrintHistory(actions []model.ActionRecord) error {
	if len(actions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tACTION\tMACHINE\tPACKAGE\tTASK\tOUTCOME\tCREATED")

	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.Kind,
			orDash(a.MachineID),
			orDash(a.PackageID),
			orDash(a.TaskID),
			a.Outcome,
			TimeAgo(a.CreatedAt),
		)
	}

	return nil
}

// PrintAction prints the details of a single action.
func (t *TablePrinter) PrintAction(a model.ActionRecord) error {
	fmt.Fprintf(t.writer, "ID:        %s\n", a.ID)
	fmt.Fprintf(t.writer, "Action:    %s\n", a.Kind)
	if a.MachineID != "" {
		fmt.Fprintf(t.writer, "Machine:   %s\n", a.MachineID)
	}
	if a.PackageID != "" {
		fmt.Fprintf(t.writer, "Package:   %s\n", a.PackageID)
	}
	if a.Force {
		fmt.Fprintf(t.writer, "Force:     yes\n")
	}
	if a.TaskID != "" {
		fmt.Fprintf(t.writer, "Task:      %s\n", a.TaskID)
	}
	fmt.Fprintf(t.writer, "Outcome:   %s\n", a.Outcome)
	if a.Message != "" {
		fmt.Fprintf(t.writer, "Message:   %s\n", a.Message)
	}
	fmt.Fprintf(t.writer, "Created:   %s\n", FormatTimestamp(a.CreatedAt))
	if a.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:  %s\n", FormatTimestamp(*a.FinishedAt))
	}

	return nil
}

// PrintTask prints the status of a dashboard task.
func (t *TablePrinter) PrintTask(task model.Task) error {
	terminal := "no"
	if task.Status.IsTerminal() {
		terminal = "yes"
	}

	fmt.Fprintf(t.writer, "Task:      %s\n", task.ID)
	fmt.Fprintf(t.writer, "Status:    %s\n", task.Status)
	fmt.Fprintf(t.writer, "Terminal:  %s\n", terminal)
	if task.ResultDetails != "" {
		fmt.Fprintf(t.writer, "Details:   %s\n", task.ResultDetails)
	}

	return nil
}

// PrintTheme prints the current theme.
func (t *TablePrinter) PrintTheme(theme model.Theme) error {
	fmt.Fprintln(t.writer, theme)
	return nil
}

// PrintAgent prints where the agent binary was stored.
func (t *TablePrinter) PrintAgent(path string, sizeBytes int64) error {
	fmt.Fprintf(t.writer, "Agent saved to %s (%s)\n", path, FormatBytes(sizeBytes))
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
