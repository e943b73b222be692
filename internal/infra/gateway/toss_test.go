package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTossClient_Confirm(t *testing.T) {
	var gotIdemKey, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments/confirm", r.URL.Path)
		gotIdemKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "DONE", "totalAmount": 23000})
	}))
	defer srv.Close()

	c := NewTossClient(srv.URL, "test_sk_xxx", 5*time.Second, zap.NewNop())

	res, err := c.Confirm(context.Background(), "pay_abc", "ORD-1-0001", 23000)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "DONE", res.Body["status"])

	assert.Equal(t, "pay_abc", gotBody["paymentKey"])
	assert.Equal(t, "ORD-1-0001", gotBody["orderId"])
	assert.Equal(t, float64(23000), gotBody["amount"])

	// Basic認証はsecretKey+":"のBase64
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_sk_xxx:"))
	assert.Equal(t, wantAuth, gotAuth)
	assert.Len(t, gotIdemKey, 64) // sha256 hex
}

// 同じキー素材なら何度呼んでも同じIdempotency-Key
func TestTossClient_IdempotencyKeyStable(t *testing.T) {
	keys := make([]string, 0, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		json.NewEncoder(w).Encode(map[string]any{"status": "DONE"})
	}))
	defer srv.Close()

	c := NewTossClient(srv.URL, "test_sk_xxx", 5*time.Second, zap.NewNop())

	_, err := c.Confirm(context.Background(), "pay_abc", "ORD-1", 100)
	require.NoError(t, err)
	_, err = c.Confirm(context.Background(), "pay_abc", "ORD-1", 100)
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])

	// confirmとcancelでは別のキーになる
	_, err = c.Cancel(context.Background(), "pay_abc", "ORD-1", 100, "reason")
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.NotEqual(t, keys[0], keys[2])
}

func TestTossClient_Cancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay_abc/cancel", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "不良品", body["cancelReason"])
		assert.Equal(t, float64(52000), body["cancelAmount"])

		json.NewEncoder(w).Encode(map[string]any{"status": "CANCELED"})
	}))
	defer srv.Close()

	c := NewTossClient(srv.URL, "test_sk_xxx", 5*time.Second, zap.NewNop())

	res, err := c.Cancel(context.Background(), "pay_abc", "ORD-1-0001", 52000, "不良品")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "CANCELED", res.Body["status"])
}

// 非2xxでもbodyごと返す（判断は呼び出し側）
func TestTossClient_RelaysErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"code": "ALREADY_PROCESSED_PAYMENT"})
	}))
	defer srv.Close()

	c := NewTossClient(srv.URL, "test_sk_xxx", 5*time.Second, zap.NewNop())

	res, err := c.Confirm(context.Background(), "pay_abc", "ORD-1", 100)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "ALREADY_PROCESSED_PAYMENT", res.Body["code"])
}

func TestTossClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 接続先を落としておく

	c := NewTossClient(srv.URL, "test_sk_xxx", time.Second, zap.NewNop())

	_, err := c.Confirm(context.Background(), "pay_abc", "ORD-1", 100)
	require.Error(t, err)
}
