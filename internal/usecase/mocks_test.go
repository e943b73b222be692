package usecase_test

import (
	"context"
	"time"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"
	"liveshop/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByMemberID(ctx context.Context, memberID int64) ([]model.Order, error) {
	args := m.Called(ctx, memberID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (model.Order, error) {
	args := m.Called(ctx, orderNumber)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) CancelCreated(ctx context.Context, orderID, memberID int64, reason string, now time.Time) (int64, error) {
	args := m.Called(ctx, orderID, memberID, reason, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) RequestRefundForPaid(ctx context.Context, orderID, memberID int64, reason string) (int64, error) {
	args := m.Called(ctx, orderID, memberID, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) ApproveRefund(ctx context.Context, orderID, memberID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, orderID, memberID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) MarkPaid(ctx context.Context, orderID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, orderID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) MarkCreatedDeleted(ctx context.Context, orderID, memberID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, orderID, memberID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) ListSellerOrders(ctx context.Context, f repo.SellerOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderIDAndSellerID(ctx context.Context, orderID, sellerID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID, sellerID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderIDsAndSellerID(ctx context.Context, orderIDs []int64, sellerID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderIDs, sellerID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) ExistsByOrderIDAndSellerID(ctx context.Context, orderID, sellerID int64) (bool, error) {
	args := m.Called(ctx, orderID, sellerID)
	return args.Bool(0), args.Error(1)
}

func (m *OrderItemRepoMock) MarkDeletedByOrderID(ctx context.Context, orderID int64, now time.Time) error {
	args := m.Called(ctx, orderID, now)
	return args.Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDForUpdate(ctx context.Context, id int64, status model.ProductStatus) (model.Product, error) {
	args := m.Called(ctx, id, status)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) DecreaseStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *ProductRepoMock) MarkSoldOutIfEmpty(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type LiveSaleRepoMock struct{ mock.Mock }

func (m *LiveSaleRepoMock) FindActiveSalePrice(ctx context.Context, productID int64) (*int64, error) {
	args := m.Called(ctx, productID)
	price, _ := args.Get(0).(*int64)
	return price, args.Error(1)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, p model.Payment) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PaymentRepoMock) FindByPaymentKey(ctx context.Context, paymentKey string) (model.Payment, bool, error) {
	args := m.Called(ctx, paymentKey)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Bool(1), args.Error(2)
}

func (m *PaymentRepoMock) FindByOrderRef(ctx context.Context, orderID int64, orderNumber string) (model.Payment, bool, error) {
	args := m.Called(ctx, orderID, orderNumber)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Bool(1), args.Error(2)
}

func (m *PaymentRepoMock) UpdateStatus(ctx context.Context, paymentKey string, status string) error {
	args := m.Called(ctx, paymentKey, status)
	return args.Error(0)
}

type RefundRepoMock struct{ mock.Mock }

func (m *RefundRepoMock) Create(ctx context.Context, r model.Refund) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RefundRepoMock) ExistsByPaymentKey(ctx context.Context, paymentKey string) (bool, error) {
	args := m.Called(ctx, paymentKey)
	return args.Bool(0), args.Error(1)
}

type MemberRepoMock struct{ mock.Mock }

func (m *MemberRepoMock) Create(ctx context.Context, member model.Member) (model.Member, error) {
	panic("not used in usecase tests")
}

func (m *MemberRepoMock) FindByEmail(ctx context.Context, email string) (model.Member, error) {
	panic("not used in usecase tests")
}

func (m *MemberRepoMock) ExistsByID(ctx context.Context, memberID int64) (bool, error) {
	args := m.Called(ctx, memberID)
	return args.Bool(0), args.Error(1)
}

type SellerRepoMock struct{ mock.Mock }

func (m *SellerRepoMock) FindActiveByMemberID(ctx context.Context, memberID int64) (model.Seller, error) {
	args := m.Called(ctx, memberID)
	s, _ := args.Get(0).(model.Seller)
	return s, args.Error(1)
}

type AddressRepoMock struct{ mock.Mock }

func (m *AddressRepoMock) SaveFromOrder(ctx context.Context, memberID int64, receiver, postcode, addrDetail string, makeDefault bool) error {
	args := m.Called(ctx, memberID, receiver, postcode, addrDetail, makeDefault)
	return args.Error(0)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Confirm(ctx context.Context, paymentKey, orderRef string, amount int64) (usecase.GatewayResult, error) {
	args := m.Called(ctx, paymentKey, orderRef, amount)
	res, _ := args.Get(0).(usecase.GatewayResult)
	return res, args.Error(1)
}

func (m *GatewayMock) Cancel(ctx context.Context, paymentKey, orderRef string, amount int64, reason string) (usecase.GatewayResult, error) {
	args := m.Called(ctx, paymentKey, orderRef, amount, reason)
	res, _ := args.Get(0).(usecase.GatewayResult)
	return res, args.Error(1)
}

type SalesAggMock struct{ mock.Mock }

func (m *SalesAggMock) RefreshForOrder(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// =====================
// TransactionManagerのスタブ。fnにモック群をそのまま渡す。
// =====================

type txReposStub struct {
	orders    *OrderRepoMock
	items     *OrderItemRepoMock
	products  *ProductRepoMock
	liveSales *LiveSaleRepoMock
	payments  *PaymentRepoMock
	refunds   *RefundRepoMock
}

func (s txReposStub) Orders() repo.OrderRepository         { return s.orders }
func (s txReposStub) OrderItems() repo.OrderItemRepository { return s.items }
func (s txReposStub) Products() repo.ProductRepository     { return s.products }
func (s txReposStub) LiveSales() repo.LiveSaleRepository   { return s.liveSales }
func (s txReposStub) Payments() repo.PaymentRepository     { return s.payments }
func (s txReposStub) Refunds() repo.RefundRepository       { return s.refunds }

type TxManagerStub struct {
	repos txReposStub
}

func (t *TxManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(t.repos)
}
