package ui

import "sync"

// Button is the operator control that triggers an action. It's disabled while
// its action (and the task poll that follows) is outstanding.
type Button struct {
	mu       sync.Mutex
	label    string
	original string
	disabled bool
}

// NewButton returns an enabled button.
func NewButton(label string) *Button {
	return &Button{label: label, original: label}
}

// Label returns the current label.
func (b *Button) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

// Disabled returns true while the action is outstanding.
func (b *Button) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

// Busy disables the button showing the in flight label.
func (b *Button) Busy(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
	b.disabled = true
}

// SetLabel changes the label without touching the disabled state.
func (b *Button) SetLabel(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
}

// Restore sets the original label back and enables the button.
func (b *Button) Restore() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = b.original
	b.disabled = false
}
