package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"liveshop/internal/domain/model"
	repo "liveshop/internal/repository"
)

const (
	sellerOrdersDefaultLimit = 20
	sellerOrdersMaxLimit     = 100
)

type SellerOrderUsecase struct {
	orders  repo.OrderRepository
	items   repo.OrderItemRepository
	sellers repo.SellerRepository
}

func NewSellerOrderUsecase(orders repo.OrderRepository, items repo.OrderItemRepository, sellers repo.SellerRepository) *SellerOrderUsecase {
	return &SellerOrderUsecase{orders: orders, items: items, sellers: sellers}
}

// 販売者向けの注文サマリ。金額は自分の明細分だけを合算する。
type SellerOrderSummaryOutput struct {
	OrderID          int64     `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	Status           string    `json:"status"`
	FirstProductName string    `json:"first_product_name"`
	ItemCount        int       `json:"item_count"`
	SellerAmount     int64     `json:"seller_amount"`
	CreatedAt        time.Time `json:"created_at"`
}

type SellerOrderListOutput struct {
	Orders []SellerOrderSummaryOutput `json:"orders"`
	Total  int64                      `json:"total"`
	Page   int                        `json:"page"`
	Limit  int                        `json:"limit"`
}

// 販売者向けの注文詳細。他販売者の明細は見せない。
type SellerOrderDetailOutput struct {
	OrderID      int64             `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	Status       string            `json:"status"`
	Receiver     string            `json:"receiver"`
	Postcode     string            `json:"postcode"`
	AddrDetail   string            `json:"addr_detail"`
	SellerAmount int64             `json:"seller_amount"`
	PaidAt       *time.Time        `json:"paid_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemOutput `json:"items"`
}

type SellerOrderListInput struct {
	Status string
	Page   int
	Limit  int
}

func (u *SellerOrderUsecase) List(ctx context.Context, memberID int64, in SellerOrderListInput) (SellerOrderListOutput, error) {
	seller, err := u.resolveSeller(ctx, memberID)
	if err != nil {
		return SellerOrderListOutput{}, err
	}

	filter := repo.SellerOrderListFilter{
		SellerID: seller.ID,
		Page:     in.Page,
		Limit:    in.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = sellerOrdersDefaultLimit
	}
	if filter.Limit > sellerOrdersMaxLimit {
		filter.Limit = sellerOrdersMaxLimit
	}
	if in.Status != "" {
		status := model.OrderStatus(in.Status)
		if !status.Valid() {
			return SellerOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter.Status = &status
	}

	orders, total, err := u.orders.ListSellerOrders(ctx, filter)
	if err != nil {
		return SellerOrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := SellerOrderListOutput{
		Orders: make([]SellerOrderSummaryOutput, 0, len(orders)),
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if len(orders) == 0 {
		return out, nil
	}

	orderIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}

	// 1クエリで全注文分の自分の明細を引く
	items, err := u.items.ListByOrderIDsAndSellerID(ctx, orderIDs, seller.ID)
	if err != nil {
		return SellerOrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	itemsByOrder := make(map[int64][]model.OrderItem, len(orders))
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}

	for _, o := range orders {
		own := itemsByOrder[o.ID]
		summary := SellerOrderSummaryOutput{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Status:      string(o.Status),
			ItemCount:   len(own),
			CreatedAt:   o.CreatedAt,
		}
		for _, it := range own {
			summary.SellerAmount += it.Subtotal
		}
		if len(own) > 0 {
			summary.FirstProductName = own[0].ProductNameSnapshot
		}
		out.Orders = append(out.Orders, summary)
	}
	return out, nil
}

func (u *SellerOrderUsecase) Detail(ctx context.Context, memberID, orderID int64) (SellerOrderDetailOutput, error) {
	seller, err := u.resolveSeller(ctx, memberID)
	if err != nil {
		return SellerOrderDetailOutput{}, err
	}
	if orderID <= 0 {
		return SellerOrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	// 自分の明細が1件もない注文は存在を明かさない
	has, err := u.items.ExistsByOrderIDAndSellerID(ctx, orderID, seller.ID)
	if err != nil {
		return SellerOrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !has {
		return SellerOrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return SellerOrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return SellerOrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.items.ListByOrderIDAndSellerID(ctx, orderID, seller.ID)
	if err != nil {
		return SellerOrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := SellerOrderDetailOutput{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Receiver:    o.Receiver,
		Postcode:    o.Postcode,
		AddrDetail:  o.AddrDetail,
		PaidAt:      o.PaidAt,
		CreatedAt:   o.CreatedAt,
		Items:       make([]OrderItemOutput, 0, len(items)),
	}
	for _, it := range items {
		out.SellerAmount += it.Subtotal
		out.Items = append(out.Items, OrderItemOutput{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
	}
	return out, nil
}

func (u *SellerOrderUsecase) resolveSeller(ctx context.Context, memberID int64) (model.Seller, error) {
	if memberID <= 0 {
		return model.Seller{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	seller, err := u.sellers.FindActiveByMemberID(ctx, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Seller{}, NewHTTPError(http.StatusForbidden, "seller only")
	}
	if err != nil {
		return model.Seller{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return seller, nil
}
