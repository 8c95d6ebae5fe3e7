package quota

import "errors"

var (
	ErrQuotaExceeded = errors.New("analysis quota exceeded")
	ErrUnknownPlan   = errors.New("unknown plan tier")
	ErrNotFound      = errors.New("quota not found")
)

// LimitError carries the numbers the client needs to render an upgrade prompt.
type LimitError struct {
	Err       error
	Current   int
	Limit     int
	PlanName  string
	UpgradeTo string
}

func (e *LimitError) Error() string { return e.Err.Error() }
func (e *LimitError) Unwrap() error { return e.Err }
