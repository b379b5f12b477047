package engine

import "github.com/nathoo/cosmicisles/types"

// Speed tier thresholds in whole minutes.
const (
	fastUnder   = 15
	normalUnder = 25
)

// Tier classifies a completion time.
func Tier(minutes int) types.SpeedTier {
	switch {
	case minutes < fastUnder:
		return types.SpeedFast
	case minutes < normalUnder:
		return types.SpeedNormal
	default:
		return types.SpeedExploratory
	}
}
