package analysis

import (
	"fmt"
	"strings"
)

// Mode is the externally owned operating mode of the dashboard.
type Mode string

const (
	ModeUnset      Mode = ""
	ModeManagement Mode = "management"
	ModeCitizen    Mode = "citizen"
)

// ParseMode accepts the English names and the Spanish ones used by the
// landing screen (gestion, ciudadania).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ModeUnset, nil
	case "management", "gestion", "gestión":
		return ModeManagement, nil
	case "citizen", "ciudadania", "ciudadanía":
		return ModeCitizen, nil
	}
	return ModeUnset, fmt.Errorf("unknown mode %q", s)
}

// State is the controller's position in the analysis cycle.
type State string

const (
	StateIdle      State = "IDLE"
	StateAnalyzing State = "ANALYZING"
	StateReady     State = "READY"
)
