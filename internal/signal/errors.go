package signal

import "fmt"

// ContractError reports malformed calibration or pulse data. It is fatal
// to the offending pulse or site only.
type ContractError struct {
	SiteID  int
	PulseID int64
	Field   string
	Msg     string
}

func (e *ContractError) Error() string {
	if e.PulseID != 0 {
		return fmt.Sprintf("input contract violation: site %d pulse %d: %s: %s", e.SiteID, e.PulseID, e.Field, e.Msg)
	}
	return fmt.Sprintf("input contract violation: site %d: %s: %s", e.SiteID, e.Field, e.Msg)
}
