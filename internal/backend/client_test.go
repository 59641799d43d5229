package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTokens struct {
	token   string
	cleared bool
}

func (f *fakeTokens) Token() string { return f.token }
func (f *fakeTokens) Clear() error {
	f.cleared = true
	f.token = ""
	return nil
}

func setupClient(t *testing.T, h http.HandlerFunc) (*Client, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tokens := &fakeTokens{token: "  tok-123  "}
	return NewClient(srv.URL+"/api/", time.Second, zap.NewNop(), WithTokenStore(tokens)), tokens
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDo_SendsTrimmedBearer(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/api/health", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"status": "ok"}})
	})

	res, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
}

func TestDo_NoContentIsSuccess(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", res.ID)
}

func TestDo_UnauthorizedKeepsTokenWithoutInvalidMarker(t *testing.T) {
	c, tokens := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})

	_, err := c.GetProfile(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.False(t, tokens.cleared)
}

func TestDo_UnauthorizedClearsTokenOnAuthFailedHeader(t *testing.T) {
	c, tokens := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Auth-Failed", "true")
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetProfile(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.True(t, tokens.cleared)
}

func TestDo_UnauthorizedClearsTokenOnInvalidTokenChallenge(t *testing.T) {
	c, tokens := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetProfile(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.True(t, tokens.cleared)
}

func TestDo_NonJSONResponse(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 150)))
	})

	_, err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Server returned non-JSON response: "+strings.Repeat("x", 100)+"...", err.Error())
}

func TestDo_ShortNonJSONResponse(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("Bad Gateway"))
	})

	_, err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Server returned non-JSON response: Bad Gateway", err.Error())
}

func TestTruncate_RuneBoundary(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé...", truncate("héllo", 2))
	assert.Equal(t, strings.Repeat("₿", 100)+"...", truncate(strings.Repeat("₿", 150), 100))
}

func TestDo_EnvelopeFailure(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "bid too low"})
	})

	_, err := c.PlaceBid(context.Background(), BidRequest{AuctionID: "a1", Amount: 10})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "bid too low", apiErr.Message)
}

func TestDo_EnvelopeSuccessWithoutDataIsUnknownError(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})

	_, err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Unknown API error", err.Error())
}

func TestDo_BareJSON(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"descriptor": "wsh(multi(2,a,b))", "address": "tb1qescrow"})
	})

	res, err := c.CreateMultisig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tb1qescrow", res.Address)
	assert.Equal(t, "wsh(multi(2,a,b))", res.Descriptor)
}

func TestDo_BareJSONErrorUsesErrorField(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "auction not found"})
	})

	_, err := c.GetAuction(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "auction not found", err.Error())
}

func TestDo_BareJSONErrorFallsBackToBody(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "db down"})
	})

	_, err := c.GetAuction(context.Background(), "a1")
	require.Error(t, err)
	assert.Equal(t, `{"detail":"db down"}`, err.Error())
}

func TestListAuctions_EncodesOnlySetParams(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auctions", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		assert.False(t, r.URL.Query().Has("seller_id"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"auctions": []interface{}{}, "total_count": 0, "page": 1, "page_size": 10},
		})
	})

	page, err := c.ListAuctions(context.Background(), ListAuctionsParams{Status: "active", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, page.PageSize)
}

func TestFinalizeAuction_Body(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auctions/a1/finalize", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"auction_id": "a1", "signature": "sig"}, body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"auction_id": "a1", "status": "completed"})
	})

	a, err := c.FinalizeAuction(context.Background(), "a1", "sig")
	require.NoError(t, err)
	assert.Equal(t, AuctionCompleted, a.Status)
}

func TestWalletLogin_MissingParamsSendsNothing(t *testing.T) {
	var calls int32
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.WalletLogin(context.Background(), "tb1qaddr", "", "msg")
	assert.ErrorIs(t, err, ErrMissingAuthParams)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestWalletLogin_EmptyTokenRejected(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"token": "", "expires_at": "2030-01-01T00:00:00Z"}})
	})

	_, err := c.WalletLogin(context.Background(), "tb1qaddr", "sig", "msg")
	assert.ErrorIs(t, err, ErrInvalidTokenData)
}

func TestWalletLogin_Success(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req WalletLoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tb1qaddr", req.Address)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{
			"token": "jwt", "expires_at": "2030-01-01T00:00:00Z", "user": map[string]string{"id": "u1"},
		}})
	})

	tok, err := c.WalletLogin(context.Background(), "tb1qaddr", "sig", "msg")
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok.Token)
	assert.Equal(t, "u1", tok.User.ID)
}

func TestGetNFT_EscapesID(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/nfts/abc%2Fi0", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{
			"id": "abc/i0", "inscription_id": "abci0", "title": "Rock", "inscription_number": 42,
		}})
	})

	nft, err := c.GetNFT(context.Background(), "abc/i0")
	require.NoError(t, err)
	assert.Equal(t, "Rock", nft.Title)
	require.NotNil(t, nft.InscriptionNumber)
	assert.Equal(t, int64(42), *nft.InscriptionNumber)
}

func TestLinkWalletAndEmail(t *testing.T) {
	c, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/auth/link-wallet":
			assert.Equal(t, map[string]string{"address": "tb1qaddr", "signature": "sig", "message": "msg"}, body)
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"message": "Wallet linked"}})
		case "/api/auth/link-email":
			assert.Equal(t, map[string]string{"email": "a@b.co"}, body)
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"message": "Code sent"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	res, err := c.LinkWallet(context.Background(), "tb1qaddr", "sig", "msg")
	require.NoError(t, err)
	assert.Equal(t, "Wallet linked", res.Message)

	res, err = c.LinkEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "Code sent", res.Message)
}

func TestWebSocketURL(t *testing.T) {
	c := NewClient("", 0, zap.NewNop())
	assert.Equal(t, "ws://localhost:8080/api/ws", c.WebSocketURL())

	secure := NewClient("https://api.satonic.io/api", 0, zap.NewNop())
	assert.Equal(t, "wss://api.satonic.io/api/ws", secure.WebSocketURL())
}
