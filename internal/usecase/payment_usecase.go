package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"

	"go.uber.org/zap"
)

type PaymentUsecase struct {
	tx       repo.TransactionManager
	payments repo.PaymentRepository
	gateway  PaymentGateway
	log      *zap.Logger
}

func NewPaymentUsecase(tx repo.TransactionManager, payments repo.PaymentRepository, gateway PaymentGateway, log *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, payments: payments, gateway: gateway, log: log}
}

type ConfirmPaymentInput struct {
	PaymentKey string `json:"paymentKey"`
	OrderRef   string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// ゲートウェイの応答をそのまま返すための器
type ConfirmPaymentOutput struct {
	StatusCode int
	Body       map[string]any
}

// Confirm は決済承認の二段階処理。
// 先にDBトランザクションで注文を検証してからcommitし、ゲートウェイはロックなしで呼ぶ。
// 承認結果の永続化は別トランザクション。途中で落ちても同じリクエストの再送で復旧できる。
func (u *PaymentUsecase) Confirm(ctx context.Context, in ConfirmPaymentInput) (ConfirmPaymentOutput, error) {
	in.PaymentKey = strings.TrimSpace(in.PaymentKey)
	in.OrderRef = strings.TrimSpace(in.OrderRef)
	if in.PaymentKey == "" || in.OrderRef == "" {
		return ConfirmPaymentOutput{}, NewHTTPError(http.StatusBadRequest, "paymentKey and orderId required")
	}
	if in.Amount <= 0 {
		return ConfirmPaymentOutput{}, NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	var (
		order  model.Order
		replay *model.Payment
	)

	// 第1段階：注文の検証（行ロック、金額一致、価格改定チェック）
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOrderByRefForUpdate(ctx, r, in.OrderRef)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 同じpaymentKeyの承認記録があれば保存済みの結果を返す
		stored, found, err := r.Payments().FindByPaymentKey(ctx, in.PaymentKey)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			if stored.OrderID != o.ID {
				return NewHTTPError(http.StatusConflict, "paymentKey belongs to another order")
			}
			if _, err := r.Orders().MarkPaid(ctx, o.ID, time.Now()); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			replay = &stored
			return nil
		}

		if o.Status == model.OrderStatusPaid {
			// 承認記録なしでPAID。二重遷移は防げているのでそのまま成功扱い。
			replay = &model.Payment{
				PaymentKey:     in.PaymentKey,
				GatewayOrderID: in.OrderRef,
				Status:         "DONE",
				TotalAmount:    o.OrderAmount,
				OrderID:        o.ID,
			}
			return nil
		}
		if o.Status != model.OrderStatusCreated {
			return NewHTTPError(http.StatusConflict, "invalid status for confirm")
		}

		if in.Amount != o.OrderAmount {
			return NewHTTPError(http.StatusBadRequest, "amount mismatch")
		}

		// 注文作成後に価格が変わっていたら承認せず注文を取り消す
		drifted, err := priceDrifted(ctx, r, o)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if drifted {
			if _, err := r.Orders().CancelCreated(ctx, o.ID, o.MemberID, "price changed", time.Now()); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			return NewHTTPError(http.StatusConflict, "price changed, order cancelled")
		}

		order = o
		return nil
	})
	if err != nil {
		return ConfirmPaymentOutput{}, err
	}

	if replay != nil {
		return ConfirmPaymentOutput{StatusCode: http.StatusOK, Body: paymentBody(*replay)}, nil
	}

	// 第2段階：ゲートウェイ承認。ここではロックもトランザクションも持たない。
	res, err := u.gateway.Confirm(ctx, in.PaymentKey, in.OrderRef, in.Amount)
	if err != nil {
		u.log.Warn("gateway confirm failed",
			zap.Int64("order_id", order.ID),
			zap.String("payment_key", in.PaymentKey),
			zap.Error(err),
		)
		return ConfirmPaymentOutput{}, NewHTTPError(http.StatusBadGateway, "gateway confirm failed")
	}
	if !res.OK() {
		// 承認拒否はゲートウェイの応答をそのまま中継
		return ConfirmPaymentOutput{StatusCode: res.StatusCode, Body: res.Body}, nil
	}

	// 第3段階：承認記録の永続化とPAIDへの遷移
	now := time.Now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p := paymentFromGatewayBody(res.Body, in, order.ID, now)
		if _, err := r.Payments().Create(ctx, p); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if _, err := r.Orders().MarkPaid(ctx, order.ID, now); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		// 承認は済んでいる。再送すればreplay経路で回復する。
		u.log.Error("payment persist failed after gateway approval",
			zap.Int64("order_id", order.ID),
			zap.String("payment_key", in.PaymentKey),
			zap.Error(err),
		)
		return ConfirmPaymentOutput{}, err
	}

	return ConfirmPaymentOutput{StatusCode: res.StatusCode, Body: res.Body}, nil
}

// orderRefは注文番号（ORD-...）か数値ID
func findOrderByRefForUpdate(ctx context.Context, r repo.TxRepos, orderRef string) (model.Order, error) {
	if id, err := strconv.ParseInt(orderRef, 10, 64); err == nil && id > 0 {
		return r.Orders().FindByIDForUpdate(ctx, id)
	}
	return r.Orders().FindByOrderNumberForUpdate(ctx, orderRef)
}

// 現在価格で引き直した商品合計が注文時のスナップショットとずれていないか
func priceDrifted(ctx context.Context, r repo.TxRepos, o model.Order) (bool, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return false, err
	}

	var current int64
	for _, it := range items {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			// 商品が消えているのも改定扱い
			return true, nil
		}
		if err != nil {
			return false, err
		}
		unitPrice, err := resolveUnitPrice(ctx, r, p)
		if err != nil {
			return false, err
		}
		current += unitPrice * it.Quantity
	}
	return current != o.TotalProductAmount, nil
}

func paymentFromGatewayBody(body map[string]any, in ConfirmPaymentInput, orderID int64, now time.Time) model.Payment {
	status := asText(body["status"])
	if status == "" {
		status = "DONE"
	}

	amount := asInt64(body["totalAmount"])
	if amount == 0 {
		amount = in.Amount
	}

	requestedAt := now
	if t := parseGatewayTime(asText(body["requestedAt"])); t != nil {
		requestedAt = *t
	}

	return model.Payment{
		PaymentKey:     in.PaymentKey,
		GatewayOrderID: in.OrderRef,
		Method:         asText(body["method"]),
		Status:         status,
		TotalAmount:    amount,
		RequestedAt:    requestedAt,
		ApprovedAt:     parseGatewayTime(asText(body["approvedAt"])),
		OrderID:        orderID,
	}
}

func paymentBody(p model.Payment) map[string]any {
	body := map[string]any{
		"paymentKey":  p.PaymentKey,
		"orderId":     p.GatewayOrderID,
		"status":      p.Status,
		"totalAmount": p.TotalAmount,
	}
	if p.Method != "" {
		body["method"] = p.Method
	}
	if p.ApprovedAt != nil {
		body["approvedAt"] = p.ApprovedAt.Format(time.RFC3339)
	}
	return body
}

// --- ゲートウェイ応答の読み出し ---

func asText(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func parseGatewayTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// cancels配列の先頭要素（最新の取消）
func extractFirstCancel(body map[string]any) map[string]any {
	cancels, ok := body["cancels"].([]any)
	if !ok || len(cancels) == 0 {
		return map[string]any{}
	}
	first, ok := cancels[0].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return first
}
