package mint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/cosmicisles/types"
)

func TestRarity(t *testing.T) {
	tests := []struct {
		name    string
		tier    types.SpeedTier
		minutes int
		badges  int
		want    string
	}{
		{"fast and quick", types.SpeedFast, 12, 5, Legendary},
		{"fast", types.SpeedFast, 15, 2, Epic},
		{"all badges", types.SpeedExploratory, 60, 5, Epic},
		{"three badges", types.SpeedNormal, 20, 3, Rare},
		{"two badges", types.SpeedNormal, 20, 2, Common},
		{"none", types.SpeedExploratory, 90, 0, Common},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rarity(tt.tier, tt.minutes, tt.badges))
		})
	}
}

func finishedJourney() types.MintRequest {
	return types.MintRequest{
		PlayerName:     "Star Walker",
		Avatar:         types.Avatar{BodyColor: "blue", Outfit: "default", Accessory: "none"},
		Badges:         []string{"Crystal Keeper", "Flame Tamer", "Grove Guardian"},
		SpeedTier:      types.SpeedNormal,
		ElapsedMinutes: 20,
		AllComplete:    false,
	}
}

func TestHTTP_Success(t *testing.T) {
	var got types.MintRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"tx":"0xabc","rarity":"Rare"}`))
	}))
	defer srv.Close()

	resp, err := NewHTTP(srv.URL, time.Second, nil).Mint(context.Background(), finishedJourney())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "0xabc", resp.TransactionRef)
	assert.Equal(t, "Rare", resp.Rarity)
	assert.Equal(t, "Star Walker", got.PlayerName)
	assert.Equal(t, 20, got.ElapsedMinutes)
	assert.Len(t, got.Badges, 3)
}

func TestHTTP_RequestWireFormat(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"success":true,"transactionRef":"ref-1"}`))
	}))
	defer srv.Close()

	resp, err := NewHTTP(srv.URL, time.Second, nil).Mint(context.Background(), finishedJourney())
	require.NoError(t, err)
	assert.Equal(t, "ref-1", resp.TransactionRef)
	assert.Equal(t, Rare, resp.Rarity, "rarity computed locally when the workflow omits it")

	assert.Equal(t, "normal", raw["completionSpeed"])
	assert.EqualValues(t, 20, raw["completionTime"])
	assert.Equal(t, false, raw["allQuestsComplete"])
	assert.Contains(t, raw, "avatar")
}

func TestHTTP_RejectionSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"wallet not connected"}`))
	}))
	defer srv.Close()

	resp, err := NewHTTP(srv.URL, time.Second, nil).Mint(context.Background(), finishedJourney())
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "wallet not connected", resp.Error)
}

func TestHTTP_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, time.Second, nil).Mint(context.Background(), finishedJourney())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(url, time.Second, nil).Mint(context.Background(), finishedJourney())
	assert.Error(t, err)
}

func TestOffline(t *testing.T) {
	req := finishedJourney()
	req.SpeedTier = types.SpeedFast
	req.ElapsedMinutes = 12

	resp, err := NewOffline(nil).Mint(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.TransactionRef, "offline-"))
	assert.Equal(t, Legendary, resp.Rarity)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewOffline(nil).Mint(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	assert.IsType(t, &Offline{}, New("", 0, nil))
	assert.IsType(t, &HTTP{}, New("http://mint.local/api/mint", 0, nil))
}
