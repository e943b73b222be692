package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"liveshop/internal/domain/model"
	"liveshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type paymentUCFixture struct {
	orders    *OrderRepoMock
	items     *OrderItemRepoMock
	products  *ProductRepoMock
	liveSales *LiveSaleRepoMock
	payments  *PaymentRepoMock
	gateway   *GatewayMock
	uc        *usecase.PaymentUsecase
}

func newPaymentUCFixture() *paymentUCFixture {
	f := &paymentUCFixture{
		orders:    new(OrderRepoMock),
		items:     new(OrderItemRepoMock),
		products:  new(ProductRepoMock),
		liveSales: new(LiveSaleRepoMock),
		payments:  new(PaymentRepoMock),
		gateway:   new(GatewayMock),
	}
	tx := &TxManagerStub{repos: txReposStub{
		orders:    f.orders,
		items:     f.items,
		products:  f.products,
		liveSales: f.liveSales,
		payments:  f.payments,
		refunds:   new(RefundRepoMock),
	}}
	f.uc = usecase.NewPaymentUsecase(tx, f.payments, f.gateway, zap.NewNop())
	return f
}

func confirmInput() usecase.ConfirmPaymentInput {
	return usecase.ConfirmPaymentInput{
		PaymentKey: "pay_abc",
		OrderRef:   "ORD-1-0001",
		Amount:     23000,
	}
}

func createdOrderForConfirm() model.Order {
	return model.Order{
		ID:                 7,
		MemberID:           1,
		OrderNumber:        "ORD-1-0001",
		TotalProductAmount: 20000,
		ShippingFee:        3000,
		OrderAmount:        23000,
		Status:             model.OrderStatusCreated,
	}
}

// 価格改定なし（注文時スナップショットと現在価格が一致）の明細を仕込む
func stubStablePrices(f *paymentUCFixture) {
	f.items.On("ListByOrderID", mock.Anything, int64(7)).
		Return([]model.OrderItem{
			{ProductID: 1, UnitPriceSnapshot: 10000, Quantity: 2, Subtotal: 20000},
		}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Price: 10000}, nil)
	f.liveSales.On("FindActiveSalePrice", mock.Anything, int64(1)).Return((*int64)(nil), nil)
}

func TestPaymentUsecase_Confirm_Success(t *testing.T) {
	f := newPaymentUCFixture()

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").
		Return(createdOrderForConfirm(), nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)
	stubStablePrices(f)

	gatewayBody := map[string]any{
		"paymentKey":  "pay_abc",
		"orderId":     "ORD-1-0001",
		"status":      "DONE",
		"method":      "카드",
		"totalAmount": float64(23000),
		"approvedAt":  "2026-09-01T10:00:00+09:00",
	}
	f.gateway.On("Confirm", mock.Anything, "pay_abc", "ORD-1-0001", int64(23000)).
		Return(usecase.GatewayResult{StatusCode: 200, Body: gatewayBody}, nil)

	var saved model.Payment
	f.payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(model.Payment) }).
		Return(int64(1), nil)
	f.orders.On("MarkPaid", mock.Anything, int64(7), mock.Anything).Return(int64(1), nil)

	out, err := f.uc.Confirm(context.Background(), confirmInput())
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, "DONE", out.Body["status"])

	assert.Equal(t, "pay_abc", saved.PaymentKey)
	assert.Equal(t, int64(23000), saved.TotalAmount)
	assert.Equal(t, int64(7), saved.OrderID)
	require.NotNil(t, saved.ApprovedAt)

	f.gateway.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestPaymentUsecase_Confirm_AmountMismatch(t *testing.T) {
	f := newPaymentUCFixture()

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").
		Return(createdOrderForConfirm(), nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)

	in := confirmInput()
	in.Amount = 22000
	_, err := f.uc.Confirm(context.Background(), in)
	assertHTTPStatus(t, err, http.StatusBadRequest)

	f.gateway.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 同じpaymentKeyの再送は保存済みの結果を返し、ゲートウェイは呼ばない
func TestPaymentUsecase_Confirm_IdempotentReplay(t *testing.T) {
	f := newPaymentUCFixture()

	order := createdOrderForConfirm()
	order.Status = model.OrderStatusPaid

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").Return(order, nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{ID: 3, PaymentKey: "pay_abc", GatewayOrderID: "ORD-1-0001", Status: "DONE", TotalAmount: 23000, OrderID: 7}, true, nil)
	f.orders.On("MarkPaid", mock.Anything, int64(7), mock.Anything).Return(int64(0), nil)

	out, err := f.uc.Confirm(context.Background(), confirmInput())
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, "DONE", out.Body["status"])
	assert.Equal(t, "pay_abc", out.Body["paymentKey"])

	f.gateway.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 注文作成後に価格が変わっていたら注文を取り消して409
func TestPaymentUsecase_Confirm_PriceDrift(t *testing.T) {
	f := newPaymentUCFixture()

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").
		Return(createdOrderForConfirm(), nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(7)).
		Return([]model.OrderItem{
			{ProductID: 1, UnitPriceSnapshot: 10000, Quantity: 2, Subtotal: 20000},
		}, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Price: 12000}, nil)
	f.liveSales.On("FindActiveSalePrice", mock.Anything, int64(1)).Return((*int64)(nil), nil)
	f.orders.On("CancelCreated", mock.Anything, int64(7), int64(1), "price changed", mock.Anything).
		Return(int64(1), nil)

	_, err := f.uc.Confirm(context.Background(), confirmInput())
	assertHTTPStatus(t, err, http.StatusConflict)

	f.orders.AssertExpectations(t)
	f.gateway.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 承認拒否はゲートウェイの応答をそのまま中継し、PAIDにはしない
func TestPaymentUsecase_Confirm_GatewayRejection(t *testing.T) {
	f := newPaymentUCFixture()

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").
		Return(createdOrderForConfirm(), nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)
	stubStablePrices(f)

	f.gateway.On("Confirm", mock.Anything, "pay_abc", "ORD-1-0001", int64(23000)).
		Return(usecase.GatewayResult{
			StatusCode: 400,
			Body:       map[string]any{"code": "REJECT_CARD_PAYMENT", "message": "한도초과"},
		}, nil)

	out, err := f.uc.Confirm(context.Background(), confirmInput())
	require.NoError(t, err)
	assert.Equal(t, 400, out.StatusCode)
	assert.Equal(t, "REJECT_CARD_PAYMENT", out.Body["code"])

	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_Confirm_GatewayDown(t *testing.T) {
	f := newPaymentUCFixture()

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").
		Return(createdOrderForConfirm(), nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)
	stubStablePrices(f)

	f.gateway.On("Confirm", mock.Anything, "pay_abc", "ORD-1-0001", int64(23000)).
		Return(usecase.GatewayResult{}, errors.New("connection refused"))

	_, err := f.uc.Confirm(context.Background(), confirmInput())
	assertHTTPStatus(t, err, http.StatusBadGateway)
}

func TestPaymentUsecase_Confirm_InvalidStatus(t *testing.T) {
	f := newPaymentUCFixture()

	order := createdOrderForConfirm()
	order.Status = model.OrderStatusCancelled

	f.orders.On("FindByOrderNumberForUpdate", mock.Anything, "ORD-1-0001").Return(order, nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)

	_, err := f.uc.Confirm(context.Background(), confirmInput())
	assertHTTPStatus(t, err, http.StatusConflict)
}

func TestPaymentUsecase_Confirm_NumericOrderRef(t *testing.T) {
	f := newPaymentUCFixture()

	order := createdOrderForConfirm()
	f.orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(order, nil)
	f.payments.On("FindByPaymentKey", mock.Anything, "pay_abc").
		Return(model.Payment{}, false, nil)
	stubStablePrices(f)

	f.gateway.On("Confirm", mock.Anything, "pay_abc", "7", int64(23000)).
		Return(usecase.GatewayResult{StatusCode: 200, Body: map[string]any{"status": "DONE"}}, nil)
	f.payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).Return(int64(1), nil)
	f.orders.On("MarkPaid", mock.Anything, int64(7), mock.Anything).Return(int64(1), nil)

	in := confirmInput()
	in.OrderRef = "7"
	out, err := f.uc.Confirm(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
}

func TestPaymentUsecase_Confirm_MissingFields(t *testing.T) {
	f := newPaymentUCFixture()

	_, err := f.uc.Confirm(context.Background(), usecase.ConfirmPaymentInput{OrderRef: "ORD-1", Amount: 100})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	_, err = f.uc.Confirm(context.Background(), usecase.ConfirmPaymentInput{PaymentKey: "pay", OrderRef: "ORD-1"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}
