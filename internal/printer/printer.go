package printer

import "github.com/slok/updash/internal/model"

// Printer knows how to print dashboard information in different formats.
type Printer interface {
	PrintHistory(actions []model.ActionRecord) error
	PrintAction(action model.ActionRecord) error
	PrintTask(task model.Task) error
	PrintTheme(theme model.Theme) error
	PrintAgent(path string, sizeBytes int64) error
	PrintMessage(msg string) error
}
