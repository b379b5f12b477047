package mint

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Offline mints locally: it grades the journey and issues a random
// transaction reference without contacting any workflow.
type Offline struct {
	log logrus.FieldLogger
}

func NewOffline(log logrus.FieldLogger) *Offline {
	return &Offline{log: logger.OrDiscard(log)}
}

func (o *Offline) Mint(ctx context.Context, req types.MintRequest) (types.MintResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.MintResponse{}, err
	}
	resp := types.MintResponse{
		Success:        true,
		TransactionRef: "offline-" + uuid.NewString(),
		Rarity:         Rarity(req.SpeedTier, req.ElapsedMinutes, len(req.Badges)),
	}
	o.log.WithFields(logrus.Fields{
		"player": req.PlayerName,
		"rarity": resp.Rarity,
		"tx":     resp.TransactionRef,
	}).Info("badge minted offline")
	return resp, nil
}
