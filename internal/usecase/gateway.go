package usecase

import "context"

// ゲートウェイ応答。ステータスコードとbodyはそのまま呼び出し元に渡せる形で持つ。
type GatewayResult struct {
	StatusCode int
	Body       map[string]any
}

func (r GatewayResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// 外部決済ゲートウェイ。同じキーでのリトライは冪等。
type PaymentGateway interface {
	// 決済承認
	Confirm(ctx context.Context, paymentKey, orderRef string, amount int64) (GatewayResult, error)

	// 決済取消（返金）
	Cancel(ctx context.Context, paymentKey, orderRef string, amount int64, reason string) (GatewayResult, error)
}

// 返金で巻き戻った売上集計の再計算。best-effortで、失敗はログのみ。
type SalesAggregator interface {
	RefreshForOrder(ctx context.Context, orderID int64) error
}
