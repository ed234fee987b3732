package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Wire DTOs. Models carry no json tags on purpose; the API shape is decided
// here and mapped explicitly.

type OrderItemResponse struct {
	ID             uuid.UUID    `json:"id"`
	ProductID      uuid.UUID    `json:"product_id"`
	SellerID       *uuid.UUID   `json:"seller_id,omitempty"`
	ProductName    string       `json:"product_name"`
	Quantity       int          `json:"quantity"`
	UnitPrice      money.Amount `json:"unit_price"`
	LineTotal      money.Amount `json:"line_total"`
	GST            money.Amount `json:"gst"`
	PST            money.Amount `json:"pst"`
	PlatformFee    money.Amount `json:"platform_fee"`
	SellerEarnings money.Amount `json:"seller_earnings"`
}

type OrderResponse struct {
	ID               uuid.UUID              `json:"id"`
	UserID           uuid.UUID              `json:"user_id"`
	Status           enums.OrderStatus      `json:"status"`
	PaymentIntentID  string                 `json:"payment_intent_id,omitempty"`
	TrackingNumber   *string                `json:"tracking_number,omitempty"`
	ShippingCarrier  *enums.ShippingCarrier `json:"shipping_carrier,omitempty"`
	IsPickup         bool                   `json:"is_pickup"`
	PickupLocationID *uuid.UUID             `json:"pickup_location_id,omitempty"`
	ShipName         string                 `json:"ship_name,omitempty"`
	ShipPhone        string                 `json:"ship_phone,omitempty"`
	ShipAddress1     string                 `json:"ship_address1,omitempty"`
	ShipAddress2     string                 `json:"ship_address2,omitempty"`
	ShipCity         string                 `json:"ship_city,omitempty"`
	ShipProvince     string                 `json:"ship_province,omitempty"`
	ShipPostalCode   string                 `json:"ship_postal_code,omitempty"`
	ShipCountry      string                 `json:"ship_country,omitempty"`
	Subtotal         money.Amount           `json:"subtotal"`
	Tax              money.Amount           `json:"tax"`
	Shipping         money.Amount           `json:"shipping"`
	Total            money.Amount           `json:"total"`
	Items            []OrderItemResponse    `json:"items"`
	CreatedAt        time.Time              `json:"created_at"`
}

func toOrderResponse(order *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal,
			GST:            item.GST,
			PST:            item.PST,
			PlatformFee:    item.PlatformFee,
			SellerEarnings: item.SellerEarnings,
		})
	}
	return OrderResponse{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		PaymentIntentID:  order.PaymentIntentID,
		TrackingNumber:   order.TrackingNumber,
		ShippingCarrier:  order.ShippingCarrier,
		IsPickup:         order.IsPickup,
		PickupLocationID: order.PickupLocationID,
		ShipName:         order.ShipName,
		ShipPhone:        order.ShipPhone,
		ShipAddress1:     order.ShipAddress1,
		ShipAddress2:     order.ShipAddress2,
		ShipCity:         order.ShipCity,
		ShipProvince:     order.ShipProvince,
		ShipPostalCode:   order.ShipPostalCode,
		ShipCountry:      order.ShipCountry,
		Subtotal:         order.Subtotal,
		Tax:              order.Tax,
		Shipping:         order.Shipping,
		Total:            order.Total,
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}

func toOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

type RefundResponse struct {
	ID              uuid.UUID             `json:"id"`
	OrderID         uuid.UUID             `json:"order_id"`
	SellerID        *uuid.UUID            `json:"seller_id,omitempty"`
	OrderItemID     *uuid.UUID            `json:"order_item_id,omitempty"`
	Amount          money.Amount          `json:"amount"`
	Reason          string                `json:"reason"`
	ReasonTag       enums.RefundReasonTag `json:"reason_tag"`
	Status          enums.RefundStatus    `json:"status"`
	GatewayRefundID string                `json:"gateway_refund_id,omitempty"`
	FailureDetail   string                `json:"failure_detail,omitempty"`
	ProcessingAt    *time.Time            `json:"processing_at,omitempty"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func toRefundResponse(refund *models.Refund) RefundResponse {
	return RefundResponse{
		ID:              refund.ID,
		OrderID:         refund.OrderID,
		SellerID:        refund.SellerID,
		OrderItemID:     refund.OrderItemID,
		Amount:          refund.Amount,
		Reason:          refund.Reason,
		ReasonTag:       refund.ReasonTag,
		Status:          refund.Status,
		GatewayRefundID: refund.GatewayRefundID,
		FailureDetail:   refund.FailureDetail,
		ProcessingAt:    refund.ProcessingAt,
		ResolvedAt:      refund.ResolvedAt,
		CreatedAt:       refund.CreatedAt,
	}
}

func toRefundResponses(refunds []models.Refund) []RefundResponse {
	out := make([]RefundResponse, 0, len(refunds))
	for i := range refunds {
		out = append(out, toRefundResponse(&refunds[i]))
	}
	return out
}

type ProductResponse struct {
	ID           uuid.UUID         `json:"id"`
	SellerID     *uuid.UUID        `json:"seller_id,omitempty"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Kind         enums.ProductKind `json:"kind"`
	UnitPrice    money.Amount      `json:"unit_price"`
	Stock        int               `json:"stock"`
	ServiceSeats *int              `json:"service_seats,omitempty"`
	ChargeGST    bool              `json:"charge_gst"`
	ChargePST    bool              `json:"charge_pst"`
	IsActive     bool              `json:"is_active"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toProductResponse(product *models.Product) ProductResponse {
	return ProductResponse{
		ID:           product.ID,
		SellerID:     product.SellerID,
		Name:         product.Name,
		Description:  product.Description,
		Kind:         product.Kind,
		UnitPrice:    product.UnitPrice,
		Stock:        product.Stock,
		ServiceSeats: product.ServiceSeats,
		ChargeGST:    product.ChargeGST,
		ChargePST:    product.ChargePST,
		IsActive:     product.IsActive,
		CreatedAt:    product.CreatedAt,
	}
}

func toProductResponses(products []models.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out
}

type SellerResponse struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	DisplayName    string             `json:"display_name"`
	Status         enums.SellerStatus `json:"status"`
	CommissionRate string             `json:"commission_rate"`
	PayoutHoldDays int                `json:"payout_hold_days"`
	IsTrusted      bool               `json:"is_trusted"`
	CreatedAt      time.Time          `json:"created_at"`
}

func toSellerResponse(seller *models.Seller) SellerResponse {
	return SellerResponse{
		ID:             seller.ID,
		UserID:         seller.UserID,
		DisplayName:    seller.DisplayName,
		Status:         seller.Status,
		CommissionRate: seller.CommissionRate.String(),
		PayoutHoldDays: seller.PayoutHoldDays,
		IsTrusted:      seller.IsTrusted,
		CreatedAt:      seller.CreatedAt,
	}
}

func toSellerResponses(sellers []models.Seller) []SellerResponse {
	out := make([]SellerResponse, 0, len(sellers))
	for i := range sellers {
		out = append(out, toSellerResponse(&sellers[i]))
	}
	return out
}

type InventoryLogResponse struct {
	ID         uuid.UUID                 `json:"id"`
	ProductID  uuid.UUID                 `json:"product_id"`
	Delta      int                       `json:"delta"`
	ChangeType enums.InventoryChangeType `json:"change_type"`
	OrderID    *uuid.UUID                `json:"order_id,omitempty"`
	Note       string                    `json:"note,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}

func toInventoryLogResponses(logs []models.InventoryLog) []InventoryLogResponse {
	out := make([]InventoryLogResponse, 0, len(logs))
	for _, entry := range logs {
		out = append(out, InventoryLogResponse{
			ID:         entry.ID,
			ProductID:  entry.ProductID,
			Delta:      entry.Delta,
			ChangeType: entry.ChangeType,
			OrderID:    entry.OrderID,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return out
}

type PickupLocationResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Address1     string    `json:"address1"`
	Address2     string    `json:"address2,omitempty"`
	City         string    `json:"city"`
	Province     string    `json:"province"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
}

func toPickupLocationResponse(location *models.PickupLocation) PickupLocationResponse {
	return PickupLocationResponse{
		ID:           location.ID,
		Name:         location.Name,
		Address1:     location.Address1,
		Address2:     location.Address2,
		City:         location.City,
		Province:     location.Province,
		PostalCode:   location.PostalCode,
		Country:      location.Country,
		Phone:        location.Phone,
		Instructions: location.Instructions,
		IsActive:     location.IsActive,
		DisplayOrder: location.DisplayOrder,
	}
}

func toPickupLocationResponses(locations []models.PickupLocation) []PickupLocationResponse {
	out := make([]PickupLocationResponse, 0, len(locations))
	for i := range locations {
		out = append(out, toPickupLocationResponse(&locations[i]))
	}
	return out
}

type MembershipPlanResponse struct {
	ID                uuid.UUID    `json:"id"`
	SellerID          *uuid.UUID   `json:"seller_id,omitempty"`
	Name              string       `json:"name"`
	Slug              string       `json:"slug"`
	Price             money.Amount `json:"price"`
	BillingPeriodDays int          `json:"billing_period_days"`
	IsActive          bool         `json:"is_active"`
}

func toMembershipPlanResponse(plan *models.MembershipPlan) MembershipPlanResponse {
	return MembershipPlanResponse{
		ID:                plan.ID,
		SellerID:          plan.SellerID,
		Name:              plan.Name,
		Slug:              plan.Slug,
		Price:             plan.Price,
		BillingPeriodDays: plan.BillingPeriodDays,
		IsActive:          plan.IsActive,
	}
}

type MembershipResponse struct {
	ID              uuid.UUID  `json:"id"`
	PlanID          uuid.UUID  `json:"plan_id"`
	UserID          uuid.UUID  `json:"user_id"`
	IsActive        bool       `json:"is_active"`
	NextBillingDate time.Time  `json:"next_billing_date"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

func toMembershipResponse(membership *models.Membership) MembershipResponse {
	return MembershipResponse{
		ID:              membership.ID,
		PlanID:          membership.PlanID,
		UserID:          membership.UserID,
		IsActive:        membership.IsActive,
		NextBillingDate: membership.NextBillingDate,
		CancelledAt:     membership.CancelledAt,
	}
}
