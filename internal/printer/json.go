package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/updash/internal/model"
)

// JSONPrinter prints dashboard information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

var _ Printer = &JSONPrinter{}

type actionOutput struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	MachineID  string     `json:"machine_id,omitempty"`
	PackageID  string     `json:"package_id,omitempty"`
	Force      bool       `json:"force,omitempty"`
	TaskID     string     `json:"task_id,omitempty"`
	Outcome    string     `json:"outcome"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

type taskOutput struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Terminal      bool   `json:"terminal"`
	ResultDetails string `json:"result_details,omitempty"`
}

type themeOutput struct {
	Theme string `json:"theme"`
}

type agentOutput struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintHistory prints the recorded actions in JSON format.
func (j *JSONPrinter) PrintHistory(actions []model.ActionRecord) error {
	items := make([]actionOutput, len(actions))
	for i, a := range actions {
		items[i] = toActionOutput(a)
	}

	return j.encode(items)
}

// PrintAction prints a single action in JSON format.
func (j *JSONPrinter) PrintAction(a model.ActionRecord) error {
	return j.encode(toActionOutput(a))
}

// PrintTask prints a task status in JSON format.
func (j *JSONPrinter) PrintTask(task model.Task) error {
	return j.encode(taskOutput{
		ID:            task.ID,
		Status:        string(task.Status),
		Terminal:      task.Status.IsTerminal(),
		ResultDetails: task.ResultDetails,
	})
}

// PrintTheme prints the theme in JSON format.
func (j *JSONPrinter) PrintTheme(theme model.Theme) error {
	return j.encode(themeOutput{Theme: string(theme)})
}

// PrintAgent prints the stored agent in JSON format.
func (j *JSONPrinter) PrintAgent(path string, sizeBytes int64) error {
	return j.encode(agentOutput{Path: path, SizeBytes: sizeBytes})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toActionOutput(a model.ActionRecord) actionOutput {
	out := actionOutput{
		ID:        a.ID,
		Kind:      string(a.Kind),
		MachineID: a.MachineID,
		PackageID: a.PackageID,
		Force:     a.Force,
		TaskID:    a.TaskID,
		Outcome:   string(a.Outcome),
		Message:   a.Message,
		CreatedAt: a.CreatedAt.UTC(),
	}
	if a.FinishedAt != nil {
		f := a.FinishedAt.UTC()
		out.FinishedAt = &f
	}
	return out
}
