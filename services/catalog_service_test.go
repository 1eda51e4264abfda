package services

import (
	"context"
	"testing"
	"time"

	"bookstore_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// insertOrder 直接写入一张订单，用于控制下单日期
func insertOrder(t *testing.T, db *gorm.DB, userID string, date time.Time, counts map[string]int) {
	t.Helper()

	order := models.Order{
		UserID:       userID,
		Date:         date,
		Status:       models.OrderStatusPlaced,
		Address:      "somewhere",
		CustomerName: "Test",
		DeliveryDate: date.AddDate(0, 0, 3).Format("02.01.2006"),
	}
	require.NoError(t, db.Create(&order).Error)
	for bookID, count := range counts {
		require.NoError(t, db.Create(&models.OrderItem{
			OrderID:   order.ID,
			BookID:    bookID,
			BookCount: count,
			Cost:      float64(count),
		}).Error)
	}
}

func TestListBooksFilters(t *testing.T) {
	db := newTestDB(t)
	cs := NewCatalogService(db, nil)
	ctx := context.Background()

	dune := createBook(t, db, "Dune", 10)
	emma := createBook(t, db, "Emma", 5)
	require.NoError(t, db.Model(emma).Updates(map[string]interface{}{"category": "romance", "subcategory": "regency"}).Error)
	createBook(t, db, "Atlas", 7)

	books, err := cs.ListBooks(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Atlas", books[0].Title)

	books, err = cs.ListBooks(ctx, "romance", "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, emma.ID, books[0].ID)

	books, err = cs.ListBooks(ctx, "", "classic")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	// category 优先于 subcategory
	books, err = cs.ListBooks(ctx, "fiction", "regency")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	books, err = cs.ListBooks(ctx, "poetry", "")
	require.NoError(t, err)
	assert.Empty(t, books)

	got, err := cs.GetBook(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Nil(t, got.Rating)

	_, err = cs.GetBook(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestGetBooksByIDs(t *testing.T) {
	db := newTestDB(t)
	cs := NewCatalogService(db, nil)
	ctx := context.Background()

	dune := createBook(t, db, "Dune", 10)
	emma := createBook(t, db, "Emma", 5)

	books, err := cs.GetBooksByIDs(ctx, []string{emma.ID, "missing", dune.ID})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)

	books, err = cs.GetBooksByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestTopSellersWindowAndLimit(t *testing.T) {
	db := newTestDB(t)
	cs := NewCatalogService(db, nil)
	ctx := context.Background()

	user := createUser(t, db, "alice")
	dune := createBook(t, db, "Dune", 10)
	emma := createBook(t, db, "Emma", 5)
	atlas := createBook(t, db, "Atlas", 7)
	old := createBook(t, db, "Old", 3)

	today := startOfDay(time.Now())
	insertOrder(t, db, user.ID, today, map[string]int{dune.ID: 2, emma.ID: 1})
	insertOrder(t, db, user.ID, today.AddDate(0, 0, -2), map[string]int{emma.ID: 1, atlas.ID: 1})
	insertOrder(t, db, user.ID, today.AddDate(0, 0, -30), map[string]int{old.ID: 50})

	sellers, err := cs.TopSellers(ctx, DefaultTopSellerDays, DefaultTopSellerLimit)
	require.NoError(t, err)
	require.Len(t, sellers, 3)

	// 同销量按书名排序
	assert.Equal(t, "Dune", sellers[0].Title)
	assert.Equal(t, int64(2), sellers[0].TotalSold)
	assert.Equal(t, "Emma", sellers[1].Title)
	assert.Equal(t, int64(2), sellers[1].TotalSold)
	assert.Equal(t, "Atlas", sellers[2].Title)

	sellers, err = cs.TopSellers(ctx, 7, 1)
	require.NoError(t, err)
	assert.Len(t, sellers, 1)

	sellers, err = cs.TopSellers(ctx, 60, 1)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, old.ID, sellers[0].ID)
}

func TestTopSellersCache(t *testing.T) {
	db := newTestDB(t)
	mr, rdb := newTestRedis(t)
	cs := NewCatalogService(db, rdb)
	ctx := context.Background()

	user := createUser(t, db, "alice")
	dune := createBook(t, db, "Dune", 10)
	emma := createBook(t, db, "Emma", 5)
	insertOrder(t, db, user.ID, time.Now(), map[string]int{dune.ID: 1})

	sellers, err := cs.TopSellers(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.True(t, mr.Exists(topSellersCacheKey))
	assert.Equal(t, topSellersCacheTTL, mr.TTL(topSellersCacheKey))

	insertOrder(t, db, user.ID, time.Now(), map[string]int{emma.ID: 5})

	sellers, err = cs.TopSellers(ctx, 7, 3)
	require.NoError(t, err)
	assert.Len(t, sellers, 1, "served from cache")

	cs.InvalidateTopSellers(ctx)
	assert.False(t, mr.Exists(topSellersCacheKey))

	sellers, err = cs.TopSellers(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, sellers, 2)
	assert.Equal(t, "Emma", sellers[0].Title)
}

func TestPlaceOrderInvalidatesTopSellers(t *testing.T) {
	db := newTestDB(t)
	mr, rdb := newTestRedis(t)
	catalog := NewCatalogService(db, rdb)
	orders := NewOrderService(db, rdb, catalog, nil)
	cart := NewCartService(db, nil)
	ctx := context.Background()

	user := createUser(t, db, "alice")
	book := createBook(t, db, "Dune", 10)

	sellers, err := catalog.TopSellers(ctx, 7, 3)
	require.NoError(t, err)
	assert.Empty(t, sellers)
	require.True(t, mr.Exists(topSellersCacheKey))

	_, err = cart.Add(ctx, user.ID, book.ID)
	require.NoError(t, err)
	_, err = orders.PlaceOrder(ctx, user.ID, courierRequest())
	require.NoError(t, err)
	assert.False(t, mr.Exists(topSellersCacheKey))

	sellers, err = catalog.TopSellers(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, book.ID, sellers[0].ID)
}
