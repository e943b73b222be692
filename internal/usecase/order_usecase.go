package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// 送料：この金額以上で無料、未満は一律
	freeShippingThreshold = 50000
	baseShippingFee       = 3000

	maxReceiverLen   = 20
	maxAddrDetailLen = 255
)

var postcodePattern = regexp.MustCompile(`^[0-9]{5}$`)

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	members   repo.MemberRepository
	addresses repo.AddressRepository
	payments  repo.PaymentRepository
	gateway   PaymentGateway
	sales     SalesAggregator
	log       *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	members repo.MemberRepository,
	addresses repo.AddressRepository,
	payments repo.PaymentRepository,
	gateway PaymentGateway,
	sales SalesAggregator,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		items:     items,
		members:   members,
		addresses: addresses,
		payments:  payments,
		gateway:   gateway,
		sales:     sales,
		log:       log,
	}
}

type CreateOrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CreateOrderInput struct {
	Items              []CreateOrderItemInput
	Receiver           string
	Postcode           string
	AddrDetail         string
	MakeDefaultAddress bool
}

type CreateOrderOutput struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	OrderAmount int64  `json:"order_amount"`
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	SellerID  int64  `json:"seller_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderSummaryOutput struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	OrderAmount int64     `json:"order_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderDetailOutput struct {
	ID                 int64             `json:"id"`
	OrderNumber        string            `json:"order_number"`
	Status             string            `json:"status"`
	Receiver           string            `json:"receiver"`
	Postcode           string            `json:"postcode"`
	AddrDetail         string            `json:"addr_detail"`
	TotalProductAmount int64             `json:"total_product_amount"`
	ShippingFee        int64             `json:"shipping_fee"`
	DiscountFee        int64             `json:"discount_fee"`
	OrderAmount        int64             `json:"order_amount"`
	CancelReason       string            `json:"cancel_reason,omitempty"`
	PaidAt             *time.Time        `json:"paid_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	RefundedAt         *time.Time        `json:"refunded_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	Items              []OrderItemOutput `json:"items"`
}

type CancelOrderOutput struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// CreateOrder は在庫予約つきの注文作成。
// 全明細分の在庫が確保できた場合だけ注文が成立し、1つでも足りなければ全体をロールバックする。
func (u *OrderUsecase) CreateOrder(ctx context.Context, memberID int64, in CreateOrderInput) (CreateOrderOutput, error) {
	if memberID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	exists, err := u.members.ExistsByID(ctx, memberID)
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !exists {
		return CreateOrderOutput{}, NewHTTPError(http.StatusNotFound, "member not found")
	}

	if len(in.Items) == 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}

	receiver, err := normalizeReceiver(in.Receiver)
	if err != nil {
		return CreateOrderOutput{}, err
	}
	postcode, err := normalizePostcode(in.Postcode)
	if err != nil {
		return CreateOrderOutput{}, err
	}
	addrDetail, err := normalizeAddrDetail(in.AddrDetail)
	if err != nil {
		return CreateOrderOutput{}, err
	}

	// 同じ商品は数量を合算して1行にまとめる（同一行の二重ロック防止）
	qtyByProduct := make(map[int64]int64)
	for _, item := range in.Items {
		if item.ProductID <= 0 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "product_id required")
		}
		if item.Quantity < 1 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
		}
		qtyByProduct[item.ProductID] += item.Quantity
	}

	// ロック取得順を全呼び出し元で揃える（昇順）。循環待ちが起きずデッドロックしない。
	productIDs := make([]int64, 0, len(qtyByProduct))
	for productID := range qtyByProduct {
		productIDs = append(productIDs, productID)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	var out CreateOrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		type pricedProduct struct {
			product   model.Product
			unitPrice int64
		}
		priced := make(map[int64]pricedProduct, len(productIDs))

		for _, productID := range productIDs {
			qty := qtyByProduct[productID]

			// 行ロック＋販売中チェック
			p, err := r.Products().FindByIDForUpdate(ctx, productID, model.ProductStatusOnSale)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			if p.Stock < qty {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("insufficient stock: product_id=%d", productID))
			}

			ok, err := r.Products().DecreaseStock(ctx, productID, qty)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("insufficient stock: product_id=%d", productID))
			}

			// 在庫0になったら売り切れへ（同一トランザクション内）
			if p.Stock == qty {
				if err := r.Products().MarkSoldOutIfEmpty(ctx, productID); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

			unitPrice, err := resolveUnitPrice(ctx, r, p)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			priced[productID] = pricedProduct{product: p, unitPrice: unitPrice}
		}

		// 注文時点のスナップショットで明細を組む
		orderItems := make([]model.OrderItem, 0, len(productIDs))
		var totalProductAmount int64
		for _, productID := range productIDs {
			pp := priced[productID]
			qty := qtyByProduct[productID]
			subtotal := pp.unitPrice * qty

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           productID,
				SellerID:            pp.product.SellerID,
				ProductNameSnapshot: pp.product.Name,
				UnitPriceSnapshot:   pp.unitPrice,
				Quantity:            qty,
				Subtotal:            subtotal,
			})
			totalProductAmount += subtotal
		}

		shippingFee := shippingFeeFor(totalProductAmount)
		var discountFee int64 = 0 // クーポン導入までは常に0
		orderAmount := totalProductAmount + shippingFee - discountFee
		orderNumber := newOrderNumber()

		orderID, err := r.Orders().Create(ctx, model.Order{
			MemberID:           memberID,
			OrderNumber:        orderNumber,
			Receiver:           receiver,
			Postcode:           postcode,
			AddrDetail:         addrDetail,
			TotalProductAmount: totalProductAmount,
			ShippingFee:        shippingFee,
			DiscountFee:        discountFee,
			OrderAmount:        orderAmount,
			Status:             model.OrderStatusCreated,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			// 注文番号の衝突。unique制約が最終ガードで、リトライで解消する。
			return NewHTTPError(http.StatusConflict, "order number conflict")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = CreateOrderOutput{
			OrderID:     orderID,
			OrderNumber: orderNumber,
			Status:      string(model.OrderStatusCreated),
			OrderAmount: orderAmount,
		}
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	// 住所帳への保存はbest-effort。失敗しても注文は成立済み。
	if err := u.addresses.SaveFromOrder(ctx, memberID, receiver, postcode, addrDetail, in.MakeDefaultAddress); err != nil {
		u.log.Warn("address save after order failed",
			zap.Int64("member_id", memberID),
			zap.Int64("order_id", out.OrderID),
			zap.Error(err),
		)
	}

	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, memberID int64) ([]OrderSummaryOutput, error) {
	if memberID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orders.ListByMemberID(ctx, memberID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]OrderSummaryOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, OrderSummaryOutput{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Status:      string(o.Status),
			OrderAmount: o.OrderAmount,
			CreatedAt:   o.CreatedAt,
		})
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, memberID, orderID int64) (OrderDetailOutput, error) {
	if memberID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.loadOwnedOrder(ctx, memberID, orderID)
	if err != nil {
		return OrderDetailOutput{}, err
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toOrderDetailOutput(o, items), nil
}

// AbandonCreatedOrder は未払いのまま放棄された注文のソフト削除。
// CREATED以外は何もしない（204のまま）。
func (u *OrderUsecase) AbandonCreatedOrder(ctx context.Context, memberID, orderID int64) error {
	if memberID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.loadOwnedOrder(ctx, memberID, orderID)
	if err != nil {
		return err
	}
	if o.Status != model.OrderStatusCreated {
		return nil
	}

	now := time.Now()
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rows, err := r.Orders().MarkCreatedDeleted(ctx, orderID, memberID, now)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if rows > 0 {
			if err := r.OrderItems().MarkDeletedByOrderID(ctx, orderID, now); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		return nil
	})
}

// RequestCancel は取消／返金のオーケストレーション。
// ステータス遷移は条件付き更新（現在ステータスが前提条件）で行い、
// ゲートウェイ呼び出し中はDBロックもトランザクションも持たない。
func (u *OrderUsecase) RequestCancel(ctx context.Context, memberID, orderID int64, reason string) (CancelOrderOutput, error) {
	if memberID <= 0 {
		return CancelOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return CancelOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return CancelOrderOutput{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	order, err := u.loadOwnedOrder(ctx, memberID, orderID)
	if err != nil {
		return CancelOrderOutput{}, err
	}

	// すでに取消終端なら同じ結果を返す（リトライ安全）
	if order.Status.IsFinalizedCancel() {
		return CancelOrderOutput{OrderID: order.ID, Status: string(order.Status)}, nil
	}

	now := time.Now()

	switch order.Status {
	case model.OrderStatusCreated:
		// 決済前なので直接CANCELLEDへ。ゲートウェイ呼び出し不要。
		rows, err := u.orders.CancelCreated(ctx, orderID, memberID, reason, now)
		if err != nil {
			return CancelOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		latest, err := u.loadOwnedOrder(ctx, memberID, orderID)
		if err != nil {
			return CancelOrderOutput{}, err
		}
		if rows == 0 && !latest.Status.IsFinalizedCancel() {
			return CancelOrderOutput{}, NewHTTPError(http.StatusConflict, "cancel state changed")
		}
		return CancelOrderOutput{OrderID: latest.ID, Status: string(latest.Status)}, nil

	case model.OrderStatusPaid:
		rows, err := u.orders.RequestRefundForPaid(ctx, orderID, memberID, reason)
		if err != nil {
			return CancelOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		latest, err := u.loadOwnedOrder(ctx, memberID, orderID)
		if err != nil {
			return CancelOrderOutput{}, err
		}
		if rows == 0 &&
			latest.Status != model.OrderStatusRefundRequested &&
			latest.Status != model.OrderStatusRefunded {
			return CancelOrderOutput{}, NewHTTPError(http.StatusConflict, "cancel state changed")
		}
		if latest.Status == model.OrderStatusRefunded {
			return CancelOrderOutput{OrderID: latest.ID, Status: string(latest.Status)}, nil
		}
		order = latest

	case model.OrderStatusRefundRequested:
		// リトライ。REFUND_REQUESTEDのままなのでそのままゲートウェイへ。

	default:
		return CancelOrderOutput{}, NewHTTPError(http.StatusConflict, "invalid status for cancel request")
	}

	return u.refundThroughGateway(ctx, memberID, order, reason, now)
}

// 返金のゲートウェイ呼び出しと確定。失敗時はREFUND_REQUESTEDのまま残り、同じ呼び出しで再試行できる。
func (u *OrderUsecase) refundThroughGateway(ctx context.Context, memberID int64, order model.Order, reason string, now time.Time) (CancelOrderOutput, error) {
	payment, found, err := u.payments.FindByOrderRef(ctx, order.ID, order.OrderNumber)
	if err != nil {
		return CancelOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found {
		return CancelOrderOutput{}, NewHTTPError(http.StatusNotFound, "payment not found")
	}

	var gatewayBody map[string]any
	if !isPaymentCanceled(payment.Status) {
		res, err := u.gateway.Cancel(ctx, payment.PaymentKey, payment.GatewayOrderID, order.OrderAmount, reason)
		if err != nil || !res.OK() {
			u.log.Warn("gateway cancel failed",
				zap.Int64("order_id", order.ID),
				zap.String("payment_key", payment.PaymentKey),
				zap.Error(err),
			)
			return CancelOrderOutput{}, NewHTTPError(http.StatusBadGateway, "gateway cancel failed")
		}
		gatewayBody = res.Body
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if gatewayBody != nil {
			if status := asText(gatewayBody["status"]); status != "" {
				if err := r.Payments().UpdateStatus(ctx, payment.PaymentKey, status); err != nil && !errors.Is(err, repo.ErrNotFound) {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			if err := u.saveRefundIfNeeded(ctx, r, payment, gatewayBody, order.OrderAmount, reason, now); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		if _, err := r.Orders().ApproveRefund(ctx, order.ID, memberID, now); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return CancelOrderOutput{}, err
	}

	latest, err := u.loadOwnedOrder(ctx, memberID, order.ID)
	if err != nil {
		return CancelOrderOutput{}, err
	}

	// 売上集計の引き直しはbest-effort
	if latest.Status == model.OrderStatusRefunded {
		if err := u.sales.RefreshForOrder(ctx, latest.ID); err != nil {
			u.log.Warn("sales refresh after refund failed",
				zap.Int64("order_id", latest.ID),
				zap.Error(err),
			)
		}
	}

	return CancelOrderOutput{OrderID: latest.ID, Status: string(latest.Status)}, nil
}

func (u *OrderUsecase) saveRefundIfNeeded(ctx context.Context, r repo.TxRepos, payment model.Payment, body map[string]any, cancelAmount int64, reason string, now time.Time) error {
	exists, err := r.Refunds().ExistsByPaymentKey(ctx, payment.PaymentKey)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	cancelInfo := extractFirstCancel(body)

	refundKey := asText(cancelInfo["transactionKey"])
	if refundKey == "" {
		refundKey = asText(cancelInfo["cancelRequestId"])
	}
	if refundKey == "" {
		refundKey = payment.PaymentKey + ":" + uuid.NewString()
	}

	amount := asInt64(cancelInfo["cancelAmount"])
	if amount == 0 {
		amount = cancelAmount
	}

	refundReason := asText(cancelInfo["cancelReason"])
	if refundReason == "" {
		refundReason = reason
	}

	status := asText(cancelInfo["cancelStatus"])
	if status == "" {
		status = "DONE"
	}

	approvedAt := parseGatewayTime(asText(cancelInfo["canceledAt"]))
	requestedAt := now
	if approvedAt != nil {
		requestedAt = *approvedAt
	}

	_, err = r.Refunds().Create(ctx, model.Refund{
		RefundKey:   refundKey,
		Amount:      amount,
		Reason:      refundReason,
		Status:      status,
		RequestedAt: requestedAt,
		ApprovedAt:  approvedAt,
		PaymentID:   payment.ID,
		PaymentKey:  payment.PaymentKey,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// 並行リトライが先に入れた。1決済1行のままでよい。
		return nil
	}
	return err
}

func (u *OrderUsecase) loadOwnedOrder(ctx context.Context, memberID, orderID int64) (model.Order, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.MemberID != memberID {
		return model.Order{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return o, nil
}

func isPaymentCanceled(status string) bool {
	return strings.EqualFold(status, "CANCELED") || strings.EqualFold(status, "PARTIAL_CANCELED")
}

// ライブセール価格があればカタログ価格より優先
func resolveUnitPrice(ctx context.Context, r repo.TxRepos, p model.Product) (int64, error) {
	livePrice, err := r.LiveSales().FindActiveSalePrice(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	if livePrice != nil {
		return *livePrice, nil
	}
	return p.Price, nil
}

func shippingFeeFor(totalProductAmount int64) int64 {
	if totalProductAmount >= freeShippingThreshold {
		return 0
	}
	return baseShippingFee
}

// 時刻＋ランダム4桁。衝突はorder_numberのunique制約で弾かれる。
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixMilli(), rand.Intn(9000)+1000)
}

func normalizeReceiver(receiver string) (string, error) {
	normalized := strings.TrimSpace(receiver)
	if normalized == "" {
		return "", NewHTTPError(http.StatusBadRequest, "receiver required")
	}
	return truncateRunes(normalized, maxReceiverLen), nil
}

func normalizePostcode(postcode string) (string, error) {
	normalized := strings.TrimSpace(postcode)
	if !postcodePattern.MatchString(normalized) {
		return "", NewHTTPError(http.StatusBadRequest, "postcode invalid")
	}
	return normalized, nil
}

func normalizeAddrDetail(addrDetail string) (string, error) {
	normalized := strings.TrimSpace(addrDetail)
	if normalized == "" {
		return "", NewHTTPError(http.StatusBadRequest, "addr_detail required")
	}
	return truncateRunes(normalized, maxAddrDetailLen), nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func toOrderDetailOutput(o model.Order, items []model.OrderItem) OrderDetailOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
	}

	return OrderDetailOutput{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		Status:             string(o.Status),
		Receiver:           o.Receiver,
		Postcode:           o.Postcode,
		AddrDetail:         o.AddrDetail,
		TotalProductAmount: o.TotalProductAmount,
		ShippingFee:        o.ShippingFee,
		DiscountFee:        o.DiscountFee,
		OrderAmount:        o.OrderAmount,
		CancelReason:       o.CancelReason,
		PaidAt:             o.PaidAt,
		CancelledAt:        o.CancelledAt,
		RefundedAt:         o.RefundedAt,
		CreatedAt:          o.CreatedAt,
		Items:              outItems,
	}
}
