package model

// CheckStatus is the status of a preflight check.
type CheckStatus string

const (
	CheckStatusOK      CheckStatus = "ok"
	CheckStatusWarning CheckStatus = "warning"
	CheckStatusError   CheckStatus = "error"
)

// CheckResult is the result of a single preflight check.
type CheckResult struct {
	ID      string // Unique identifier for the check (e.g., "dashboard_reachable").
	Message string
	Status  CheckStatus
}

// HasErrors returns true if any check failed.
func HasErrors(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == CheckStatusError {
			return true
		}
	}
	return false
}

// CountByStatus counts check results by status.
func CountByStatus(results []CheckResult) (ok, warnings, errors int) {
	for _, r := range results {
		switch r.Status {
		case CheckStatusOK:
			ok++
		case CheckStatusWarning:
			warnings++
		case CheckStatusError:
			errors++
		}
	}
	return
}
