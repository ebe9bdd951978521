package model

import (
	"fmt"
	"strings"
)

// Status is the parsed form of a sensor status string. Upstream sensors encode
// drive status as "<STATE>_<REASON...>", e.g. "inuse_ok" or "failed_smart_failure".
type Status struct {
	State  string `json:"state"`
	Reason string `json:"reason"`
}

// SplitStatus parses a raw status string into its state and reason parts.
// The split is on the first underscore only; the reason keeps any further
// underscores verbatim.
func SplitStatus(raw string) (Status, error) {
	state, reason, ok := strings.Cut(raw, "_")
	if !ok {
		return Status{}, fmt.Errorf("status %q has no state/reason separator", raw)
	}
	return Status{State: state, Reason: reason}, nil
}

// String re-joins the status into its wire form.
func (s Status) String() string {
	return s.State + "_" + s.Reason
}
