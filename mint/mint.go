// Package mint hands a finished journey to the badge minting workflow.
package mint

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/types"
)

// Workflow mints a badge for a finished journey. A response with
// Success=false is a workflow rejection; a non-nil error means the workflow
// could not be reached.
type Workflow interface {
	Mint(ctx context.Context, req types.MintRequest) (types.MintResponse, error)
}

// Rarity tiers.
const (
	Common    = "Common"
	Rare      = "Rare"
	Epic      = "Epic"
	Legendary = "Legendary"
)

// Rarity grades a journey by pace and badge count.
func Rarity(tier types.SpeedTier, minutes, badges int) string {
	switch {
	case tier == types.SpeedFast && minutes < 15:
		return Legendary
	case tier == types.SpeedFast || badges == 5:
		return Epic
	case badges >= 3:
		return Rare
	default:
		return Common
	}
}

// New returns an HTTP workflow posting to url, or an Offline one when url is
// empty.
func New(url string, timeout time.Duration, log logrus.FieldLogger) Workflow {
	if url == "" {
		return NewOffline(log)
	}
	return NewHTTP(url, timeout, log)
}
