package web

import (
	"encoding/json"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// ActionJSON is the response to an action request.
type ActionJSON struct {
	Requested  string `json:"requested"`
	Performed  string `json:"performed"`
	FanEnabled bool   `json:"fan_enabled"`
}

func formatAction(requested, performed logic.Action, fanEnabled bool) []byte {
	data, _ := json.Marshal(ActionJSON{
		Requested:  string(requested),
		Performed:  string(performed),
		FanEnabled: fanEnabled,
	})
	return data
}
