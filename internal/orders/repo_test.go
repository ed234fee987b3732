package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Seller{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.Refund{},
		&models.PickupLocation{},
	))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, intentID string, createdAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPaid,
		PaymentIntentID: intentID,
		Subtotal:        money.MustFromString("10.00"),
		Tax:             money.Zero(),
		Shipping:        money.Zero(),
		Total:           money.MustFromString("10.00"),
	}
	require.NoError(t, db.Omit("Items").Create(order).Error)
	require.NoError(t, db.Model(order).Update("created_at", createdAt).Error)
	order.CreatedAt = createdAt
	return order
}

func TestPaymentIntentExists(t *testing.T) {
	t.Parallel()
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	seedOrder(t, db, userID, "pi_taken", time.Now())
	seedOrder(t, db, userID, "", time.Now())

	exists, err := repo.PaymentIntentExists(ctx, "pi_taken")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.PaymentIntentExists(ctx, "pi_fresh")
	require.NoError(t, err)
	assert.False(t, exists)

	// Blank intents never reserve anything, however many rows carry one.
	exists, err = repo.PaymentIntentExists(ctx, "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListByUserOrderingAndCursor(t *testing.T) {
	t.Parallel()
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	var orders []*models.Order
	for i := 0; i < 3; i++ {
		orders = append(orders, seedOrder(t, db, userID, "", base.Add(time.Duration(i)*time.Minute)))
	}
	seedOrder(t, db, uuid.New(), "", base)

	page, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, orders[2].ID, page[0].ID, "newest first")
	assert.Equal(t, orders[0].ID, page[2].ID)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: page[0].CreatedAt, ID: page[0].ID})
	rest, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, orders[1].ID, rest[0].ID)

	_, err = repo.ListByUser(ctx, userID, pagination.Params{Limit: 10, Cursor: "not base64"})
	assert.Error(t, err)
}

func TestFindOrderPreloadsItems(t *testing.T) {
	t.Parallel()
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "pi_items", time.Now())
	require.NoError(t, repo.CreateOrderItems(ctx, []models.OrderItem{
		{
			OrderID:        order.ID,
			ProductID:      uuid.New(),
			ProductName:    "Foam Roller",
			Quantity:       2,
			UnitPrice:      money.MustFromString("5.00"),
			LineTotal:      money.MustFromString("10.00"),
			GST:            money.Zero(),
			PST:            money.Zero(),
			PlatformFee:    money.MustFromString("1.00"),
			SellerEarnings: money.MustFromString("9.00"),
		},
	}))

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Foam Roller", found.Items[0].ProductName)
}

func TestCountRefunds(t *testing.T) {
	t.Parallel()
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "pi_refunds", time.Now())
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&models.Refund{
			OrderID:   order.ID,
			Amount:    money.MustFromString("1.00"),
			Reason:    "damaged",
			ReasonTag: enums.RefundReasonRequestedByCustomer,
			CreatedBy: uuid.New(),
			Status:    enums.RefundStatusRequested,
		}).Error)
	}

	count, err := repo.CountRefunds(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	count, err = repo.CountRefunds(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteOrderRemovesItems(t *testing.T) {
	t.Parallel()
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "pi_delete", time.Now())
	require.NoError(t, repo.CreateOrderItems(ctx, []models.OrderItem{
		{
			OrderID:        order.ID,
			ProductID:      uuid.New(),
			ProductName:    "Kettlebell",
			Quantity:       1,
			UnitPrice:      money.MustFromString("30.00"),
			LineTotal:      money.MustFromString("30.00"),
			GST:            money.Zero(),
			PST:            money.Zero(),
			PlatformFee:    money.MustFromString("3.00"),
			SellerEarnings: money.MustFromString("27.00"),
		},
	}))

	require.NoError(t, repo.DeleteOrder(ctx, order.ID))

	_, err := repo.FindOrder(ctx, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var itemCount int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&itemCount).Error)
	assert.Zero(t, itemCount)
}
