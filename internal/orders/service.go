package orders

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/commission"
	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service builds and maintains orders.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	UpdateShipping(ctx context.Context, input UpdateShippingInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory InventoryAdjuster
	downloads DownloadGranter
	log       *logger.Logger

	flatShippingFee       money.Amount
	freeShippingThreshold money.Amount
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, inv InventoryAdjuster, downloads DownloadGranter, log *logger.Logger, engine config.EngineConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if downloads == nil {
		return nil, fmt.Errorf("download granter required")
	}

	flat, err := money.FromString(engine.FlatShippingFee)
	if err != nil {
		return nil, fmt.Errorf("invalid flat shipping fee: %w", err)
	}
	threshold, err := money.FromString(engine.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid free shipping threshold: %w", err)
	}
	if log == nil {
		log = logger.New(logger.Options{ServiceName: "orders", Output: io.Discard})
	}

	return &service{
		repo:                  repo,
		tx:                    tx,
		inventory:             inv,
		downloads:             downloads,
		log:                   log,
		flatShippingFee:       flat,
		freeShippingThreshold: threshold,
	}, nil
}

// PlaceOrder runs the full checkout build in one transaction: availability,
// pricing, tax, shipping, the commission split per line, stock movement, and
// digital grants. The order lands in status paid because payment was already
// captured by the gateway before checkout confirmation.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	qtyByProduct := make(map[uuid.UUID]int, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		qtyByProduct[line.ProductID] += line.Quantity
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.PaymentIntentID != "" {
			exists, err := repo.PaymentIntentExists(ctx, input.PaymentIntentID)
			if err != nil {
				return err
			}
			if exists {
				return pkgerrors.New(pkgerrors.CodeDuplicatePaymentIntent, "payment intent already used by another order")
			}
		}

		ids := make([]uuid.UUID, 0, len(qtyByProduct))
		for id := range qtyByProduct {
			ids = append(ids, id)
		}
		products, err := repo.FindProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for id := range qtyByProduct {
			p, ok := byID[id]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product %s", id))
			}
			if !p.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not available", id))
			}
		}

		if shortages := findShortages(input.Lines, byID); len(shortages) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"shortages": shortages})
		}

		sellerIDs := collectSellerIDs(products)
		sellersByID, err := repo.FindSellers(ctx, sellerIDs)
		if err != nil {
			return err
		}

		order, err = s.buildOrder(ctx, repo, input, byID)
		if err != nil {
			return err
		}

		items, err := s.buildItems(input.Lines, order, byID, sellersByID)
		if err != nil {
			return err
		}
		if err := checkInvariants(order, items); err != nil {
			return err
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicatePaymentIntent, err, "payment intent already used by another order")
			}
			return err
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		return s.applyFulfillment(ctx, tx, input, order, byID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func findShortages(lines []CartLine, byID map[uuid.UUID]models.Product) []StockShortage {
	requested := map[uuid.UUID]int{}
	for _, line := range lines {
		requested[line.ProductID] += line.Quantity
	}

	var shortages []StockShortage
	for id, qty := range requested {
		p := byID[id]
		switch p.Kind {
		case enums.ProductKindPhysical:
			if p.Stock < qty {
				shortages = append(shortages, StockShortage{ProductID: id, Requested: qty, Available: p.Stock})
			}
		case enums.ProductKindService:
			if p.ServiceSeats != nil && *p.ServiceSeats < qty {
				shortages = append(shortages, StockShortage{ProductID: id, Requested: qty, Available: *p.ServiceSeats})
			}
		}
	}
	return shortages
}

func collectSellerIDs(products []models.Product) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, p := range products {
		if p.SellerID != nil && !seen[*p.SellerID] {
			seen[*p.SellerID] = true
			ids = append(ids, *p.SellerID)
		}
	}
	return ids
}

func (s *service) buildOrder(ctx context.Context, repo Repository, input PlaceOrderInput, byID map[uuid.UUID]models.Product) (*models.Order, error) {
	subtotal := money.Zero()
	tax := money.Zero()
	hasPhysical := false
	for _, line := range input.Lines {
		p := byID[line.ProductID]
		lineTotal := p.UnitPrice.MulInt(int64(line.Quantity))
		gst, pst := money.LineTax(lineTotal, p.ChargeGST, p.ChargePST)
		subtotal = subtotal.Add(lineTotal)
		tax = tax.Add(gst).Add(pst)
		if p.Kind == enums.ProductKindPhysical {
			hasPhysical = true
		}
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Status:          enums.OrderStatusPaid,
		PaymentIntentID: input.PaymentIntentID,
		Subtotal:        subtotal,
		Tax:             tax,
	}

	if input.PickupLocationID != nil {
		loc, err := repo.FindPickupLocation(ctx, *input.PickupLocationID)
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown pickup location")
		}
		if err != nil {
			return nil, err
		}
		if !loc.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup location is not active")
		}
		order.IsPickup = true
		order.PickupLocationID = &loc.ID
		order.ApplySnapshot(models.ShippingSnapshot{
			Name:       loc.Name,
			Phone:      loc.Phone,
			Address1:   loc.Address1,
			Address2:   loc.Address2,
			City:       loc.City,
			Province:   loc.Province,
			PostalCode: loc.PostalCode,
			Country:    loc.Country,
		})
	} else {
		user, err := repo.FindUser(ctx, input.UserID)
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown user")
		}
		if err != nil {
			return nil, err
		}
		if hasPhysical && (user.ShipAddress1 == "" || user.ShipCity == "") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping profile is incomplete")
		}
		order.ApplySnapshot(models.ShippingSnapshot{
			Name:       user.Name,
			Phone:      user.Phone,
			Address1:   user.ShipAddress1,
			Address2:   user.ShipAddress2,
			City:       user.ShipCity,
			Province:   user.ShipProvince,
			PostalCode: user.ShipPostalCode,
			Country:    user.ShipCountry,
		})
	}

	order.Shipping = s.shippingFee(subtotal, hasPhysical, order.IsPickup)
	order.Total = subtotal.Add(tax).Add(order.Shipping)
	return order, nil
}

// shippingFee is zero for empty carts, all-digital/service carts, pickup
// orders, and subtotals at or above the free-shipping threshold. Everything
// else pays the flat fee.
func (s *service) shippingFee(subtotal money.Amount, hasPhysical, isPickup bool) money.Amount {
	if subtotal.IsZero() || !hasPhysical || isPickup {
		return money.Zero()
	}
	if subtotal.Cmp(s.freeShippingThreshold) >= 0 {
		return money.Zero()
	}
	return s.flatShippingFee
}

func (s *service) buildItems(lines []CartLine, order *models.Order, byID map[uuid.UUID]models.Product, sellersByID map[uuid.UUID]models.Seller) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := byID[line.ProductID]
		lineTotal := p.UnitPrice.MulInt(int64(line.Quantity))
		gst, pst := money.LineTax(lineTotal, p.ChargeGST, p.ChargePST)

		fee, earnings := money.Zero(), lineTotal
		if p.SellerID != nil {
			seller, ok := sellersByID[*p.SellerID]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation,
					fmt.Sprintf("product %s references missing seller %s", p.ID, *p.SellerID))
			}
			fee, earnings = commission.Split(lineTotal, seller.CommissionRate)
		}

		items = append(items, models.OrderItem{
			OrderID:        order.ID,
			ProductID:      p.ID,
			SellerID:       p.SellerID,
			ProductName:    p.Name,
			Quantity:       line.Quantity,
			UnitPrice:      p.UnitPrice,
			LineTotal:      lineTotal,
			GST:            gst,
			PST:            pst,
			PlatformFee:    fee,
			SellerEarnings: earnings,
		})
	}
	return items, nil
}

func checkInvariants(order *models.Order, items []models.OrderItem) error {
	linesSum := money.Zero()
	for _, item := range items {
		if !item.PlatformFee.Add(item.SellerEarnings).Equal(item.LineTotal) {
			return pkgerrors.New(pkgerrors.CodeInvariantViolation, "commission split does not sum to line total")
		}
		linesSum = linesSum.Add(item.LineTotal)
	}
	if !linesSum.Equal(order.Subtotal) {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "line totals do not sum to subtotal")
	}
	if !order.Subtotal.Add(order.Tax).Add(order.Shipping).Equal(order.Total) {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "order total identity broken")
	}
	return nil
}

func (s *service) applyFulfillment(ctx context.Context, tx *gorm.DB, input PlaceOrderInput, order *models.Order, byID map[uuid.UUID]models.Product) error {
	for id, qty := range groupQuantities(input.Lines) {
		p := byID[id]
		adjust := inventory.AdjustInput{
			ProductID:  id,
			Delta:      -qty,
			ChangeType: enums.InventoryChangePurchase,
			ActorID:    &order.UserID,
			OrderID:    &order.ID,
		}
		switch p.Kind {
		case enums.ProductKindPhysical:
			if _, err := s.inventory.Adjust(ctx, tx, adjust); err != nil {
				return err
			}
		case enums.ProductKindService:
			if _, err := s.inventory.AdjustSeats(ctx, tx, adjust); err != nil {
				return err
			}
		case enums.ProductKindDigital:
			if err := s.inventory.LogOnly(ctx, tx, adjust); err != nil {
				return err
			}
			if _, err := s.downloads.Grant(ctx, tx, order.ID, id); err != nil {
				return err
			}
		}
	}
	if s.log != nil {
		s.log.Info(s.log.WithOrderID(ctx, order.ID.String()), "order placed")
	}
	return nil
}

func groupQuantities(lines []CartLine) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		out[line.ProductID] += line.Quantity
	}
	return out
}

// UpdateShipping edits tracking and carrier at any time, but the address
// snapshot only while the order is unlocked. Locked orders keep their
// snapshot without raising an error.
func (s *service) UpdateShipping(ctx context.Context, input UpdateShippingInput) (*models.Order, error) {
	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = *input.TrackingNumber
		order.TrackingNumber = input.TrackingNumber
	}
	if input.ShippingCarrier != nil {
		if !input.ShippingCarrier.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping carrier")
		}
		updates["shipping_carrier"] = *input.ShippingCarrier
		order.ShippingCarrier = input.ShippingCarrier
	}
	if input.Address != nil && !order.Status.ShippingLocked() {
		addr := *input.Address
		updates["ship_name"] = addr.Name
		updates["ship_phone"] = addr.Phone
		updates["ship_address1"] = addr.Address1
		updates["ship_address2"] = addr.Address2
		updates["ship_city"] = addr.City
		updates["ship_province"] = addr.Province
		updates["ship_postal_code"] = addr.PostalCode
		updates["ship_country"] = addr.Country
		order.ApplySnapshot(models.ShippingSnapshot(addr))
	}
	if len(updates) == 0 {
		return order, nil
	}

	if err := s.repo.UpdateOrder(ctx, input.OrderID, updates); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", orderID))
	}
	return order, err
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListByUser(ctx, userID, params)
}

// Delete removes an order outright. Orders with any refund history are kept
// for the audit trail.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountRefunds(ctx, order.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "orders with refunds cannot be deleted")
		}
		return repo.DeleteOrder(ctx, order.ID)
	})
}
