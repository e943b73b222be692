package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"liveshop/internal/usecase"

	"go.uber.org/zap"
)

// Toss Payments互換APIのクライアント。
// Idempotency-Keyをキー素材のハッシュで固定するので、同じ注文・金額のリトライは二重処理にならない。
type TossClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	log       *zap.Logger
}

func NewTossClient(baseURL, secretKey string, timeout time.Duration, log *zap.Logger) *TossClient {
	return &TossClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

func (c *TossClient) Confirm(ctx context.Context, paymentKey, orderRef string, amount int64) (usecase.GatewayResult, error) {
	body := map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderRef,
		"amount":     amount,
	}
	idemKey := idempotencyKey(paymentKey, orderRef, amount, "")
	return c.post(ctx, c.baseURL+"/v1/payments/confirm", idemKey, body)
}

func (c *TossClient) Cancel(ctx context.Context, paymentKey, orderRef string, amount int64, reason string) (usecase.GatewayResult, error) {
	body := map[string]any{
		"cancelReason": reason,
		"cancelAmount": amount,
	}
	idemKey := idempotencyKey(paymentKey, orderRef, amount, "cancel")
	url := fmt.Sprintf("%s/v1/payments/%s/cancel", c.baseURL, paymentKey)
	return c.post(ctx, url, idemKey, body)
}

func (c *TossClient) post(ctx context.Context, url, idemKey string, body map[string]any) (usecase.GatewayResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return usecase.GatewayResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return usecase.GatewayResult{}, err
	}
	req.Header.Set("Authorization", basicAuthHeader(c.secretKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idemKey)

	res, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("gateway request failed", zap.String("url", url), zap.Error(err))
		return usecase.GatewayResult{}, err
	}
	defer res.Body.Close()

	var responseBody map[string]any
	if err := json.NewDecoder(res.Body).Decode(&responseBody); err != nil {
		c.log.Warn("gateway response decode failed", zap.String("url", url), zap.Error(err))
		return usecase.GatewayResult{}, err
	}

	c.log.Info("gateway call",
		zap.String("url", url),
		zap.Int("status", res.StatusCode),
	)
	return usecase.GatewayResult{StatusCode: res.StatusCode, Body: responseBody}, nil
}

// secretKey + ":" をBase64（Toss方式のBasic認証）
func basicAuthHeader(secretKey string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(secretKey + ":"))
	return "Basic " + encoded
}

// キー素材が同じなら常に同じIdempotency-Keyになる
func idempotencyKey(paymentKey, orderRef string, amount int64, op string) string {
	source := paymentKey + ":" + orderRef + ":" + strconv.FormatInt(amount, 10)
	if op != "" {
		source += ":" + op
	}
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
