package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// maxResponseBytes caps how much of a workflow response is read.
const maxResponseBytes = 1 << 20

// HTTP posts mint requests as JSON to a remote workflow.
type HTTP struct {
	url        string
	httpClient *http.Client
	log        logrus.FieldLogger
}

func NewHTTP(url string, timeout time.Duration, log logrus.FieldLogger) *HTTP {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTP{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrDiscard(log),
	}
}

// wireResponse accepts both the "tx" and "transactionRef" spellings.
type wireResponse struct {
	Success        bool   `json:"success"`
	Tx             string `json:"tx"`
	TransactionRef string `json:"transactionRef"`
	Rarity         string `json:"rarity"`
	Error          string `json:"error"`
}

func (h *HTTP) Mint(ctx context.Context, req types.MintRequest) (types.MintResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return types.MintResponse{}, fmt.Errorf("failed to marshal mint request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return types.MintResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	h.log.WithFields(logrus.Fields{
		"url":    h.url,
		"badges": len(req.Badges),
		"speed":  req.SpeedTier,
	}).Info("requesting mint")

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return types.MintResponse{}, fmt.Errorf("failed to send mint request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.MintResponse{}, fmt.Errorf("failed to read mint response: %w", err)
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return types.MintResponse{}, fmt.Errorf("mint request failed with status: %d", resp.StatusCode)
		}
		return types.MintResponse{}, fmt.Errorf("failed to decode mint response: %w", err)
	}

	out := types.MintResponse{
		Success:        wr.Success && resp.StatusCode == http.StatusOK,
		TransactionRef: wr.TransactionRef,
		Rarity:         wr.Rarity,
		Error:          wr.Error,
	}
	if out.TransactionRef == "" {
		out.TransactionRef = wr.Tx
	}
	if !out.Success {
		if out.Error == "" {
			out.Error = fmt.Sprintf("mint rejected with status %d", resp.StatusCode)
		}
		h.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"error":  out.Error,
		}).Error("mint rejected")
		return out, nil
	}
	if out.Rarity == "" {
		out.Rarity = Rarity(req.SpeedTier, req.ElapsedMinutes, len(req.Badges))
	}
	return out, nil
}
