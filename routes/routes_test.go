package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bookstore_go/middleware"
	"bookstore_go/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	SetupRoutes(r, NewServices(db, rdb, nil))
	return &testApp{t: t, router: r, db: db}
}

func (a *testApp) do(method, path string, form url.Values) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func (a *testApp) login(email string) {
	a.t.Helper()

	w, env := a.do(http.MethodPost, "/login", url.Values{"email": {email}, "password": {"password123"}})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	decode(a.t, env.Data, &data)
	require.NotEmpty(a.t, data.Token)

	cookies := w.Result().Cookies()
	require.NotEmpty(a.t, cookies)
	assert.Equal(a.t, middleware.SessionCookie, cookies[0].Name)
	assert.True(a.t, cookies[0].HttpOnly)

	a.token = data.Token
}

func (a *testApp) register(username, email string) {
	a.t.Helper()

	w, _ := a.do(http.MethodPost, "/register", url.Values{
		"username":         {username},
		"user_phone":       {"+15550001111"},
		"email":            {email},
		"password":         {"password123"},
		"confirm_password": {"password123"},
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testApp) createBook(title string, price float64) *models.Book {
	a.t.Helper()

	book := &models.Book{
		Title: title, Author: "Author", Price: price, Genre: "Novel",
		Cover: "/c.jpg", Description: "d", Year: 2000, Category: "fiction", Subcategory: "classic",
	}
	require.NoError(a.t, a.db.Create(book).Error)
	return book
}

func TestShoppingFlow(t *testing.T) {
	app := newTestApp(t)
	dune := app.createBook("Dune", 10)
	emma := app.createBook("Emma", 5)

	app.register("alice", "alice@example.com")
	app.login("alice@example.com")

	for _, id := range []string{dune.ID, dune.ID, emma.ID} {
		w, _ := app.do(http.MethodPost, "/add_to_cart", url.Values{"book_id": {id}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w, env := app.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		TotalCount int     `json:"total_count"`
		TotalPrice float64 `json:"total_price"`
	}
	decode(t, env.Data, &cart)
	assert.Equal(t, 3, cart.TotalCount)
	assert.Equal(t, 25.0, cart.TotalPrice)

	w, _ = app.do(http.MethodGet, "/making_an_order", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = app.do(http.MethodPost, "/making_an_order", url.Values{
		"payment_method":  {"card"},
		"delivery_method": {"pickup"},
		"full_name":       {"Alice Liddell"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order struct {
			ID          string  `json:"id"`
			TotalAmount float64 `json:"total_amount"`
			Address     string  `json:"address"`
		} `json:"order"`
		BookList []string `json:"book_list"`
	}
	decode(t, env.Data, &placed)
	assert.Equal(t, 25.0, placed.Order.TotalAmount)
	assert.Equal(t, "Self-pickup", placed.Order.Address)
	assert.Len(t, placed.BookList, 2)

	w, env = app.do(http.MethodGet, "/orders/"+placed.Order.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	}
	decode(t, env.Data, &detail)
	assert.Len(t, detail.Items, 2)

	bookList, _ := json.Marshal(placed.BookList)
	w, env = app.do(http.MethodPost, "/order_items", url.Values{"book_list": {string(bookList)}})
	require.Equal(t, http.StatusOK, w.Code)
	var items struct {
		Books []models.Book `json:"books"`
	}
	decode(t, env.Data, &items)
	assert.Len(t, items.Books, 2)

	// 购物车已清空
	w, env = app.do(http.MethodPost, "/making_an_order", url.Values{
		"payment_method":  {"card"},
		"delivery_method": {"courier"},
		"full_name":       {"Alice Liddell"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	var redirect struct {
		Redirect string `json:"redirect"`
	}
	decode(t, env.Data, &redirect)
	assert.Equal(t, "/cart", redirect.Redirect)

	w, env = app.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var home struct {
		TopSellers []struct {
			Title     string `json:"title"`
			TotalSold int64  `json:"total_sold"`
		} `json:"top_sellers"`
	}
	decode(t, env.Data, &home)
	require.Len(t, home.TopSellers, 2)
	assert.Equal(t, "Dune", home.TopSellers[0].Title)
	assert.Equal(t, int64(2), home.TopSellers[0].TotalSold)
}

func TestReviewFlow(t *testing.T) {
	app := newTestApp(t)
	book := app.createBook("Dune", 10)

	app.register("alice", "alice@example.com")
	app.login("alice@example.com")

	w, env := app.do(http.MethodPost, "/submit_review", url.Values{"book_id": {book.ID}, "rating": {"9"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var invalid struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, env.Data, &invalid)
	assert.Contains(t, invalid.Errors, "rating")

	w, _ = app.do(http.MethodPost, "/submit_review", url.Values{"book_id": {book.ID}, "rating": {"4"}, "review_text": {"great"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = app.do(http.MethodGet, "/books/"+book.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Book
	decode(t, env.Data, &got)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.0, *got.Rating)
	assert.Equal(t, 1, got.RatingCount)

	w, env = app.do(http.MethodGet, "/books/"+book.ID+"/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reviews struct {
		Reviews []struct {
			Username string `json:"username"`
			Review   string `json:"review"`
		} `json:"reviews"`
	}
	decode(t, env.Data, &reviews)
	require.Len(t, reviews.Reviews, 1)
	assert.Equal(t, "alice", reviews.Reviews[0].Username)

	w, _ = app.do(http.MethodGet, "/books/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := app.do(http.MethodPost, "/register", url.Values{
		"username":         {"al"},
		"user_phone":       {"not-a-phone"},
		"email":            {"alice@example.com"},
		"password":         {"password123"},
		"confirm_password": {"different123"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var invalid struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, env.Data, &invalid)
	assert.Contains(t, invalid.Errors, "username")
	assert.Contains(t, invalid.Errors, "user_phone")
	assert.Contains(t, invalid.Errors, "confirm_password")

	app.register("alice", "alice@example.com")

	w, _ = app.do(http.MethodPost, "/register", url.Values{
		"username":         {"alice"},
		"user_phone":       {"+15550001111"},
		"email":            {"other@example.com"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = app.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Login failed", env.Message)

	app.login("alice@example.com")

	w, env = app.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decode(t, env.Data, &me)
	assert.Equal(t, "alice", me.Username)

	w, _ = app.do(http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartErrors(t *testing.T) {
	app := newTestApp(t)
	book := app.createBook("Dune", 10)

	app.register("alice", "alice@example.com")
	app.login("alice@example.com")

	w, _ := app.do(http.MethodPost, "/add_to_cart", url.Values{"book_id": {"missing"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(http.MethodPost, "/remove_from_cart", url.Values{"book_id": {book.ID}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(http.MethodPost, "/add_to_cart", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = app.do(http.MethodGet, "/making_an_order", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPlaceOrderEmptyCartBeforeValidation(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "alice@example.com")
	app.login("alice@example.com")

	w, env := app.do(http.MethodPost, "/making_an_order", url.Values{})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var data struct {
		Redirect string            `json:"redirect"`
		Errors   map[string]string `json:"errors"`
	}
	decode(t, env.Data, &data)
	assert.Equal(t, "/cart", data.Redirect)
	assert.Empty(t, data.Errors)

	// 购物车非空时才校验表单
	book := app.createBook("Dune", 10)
	w, _ = app.do(http.MethodPost, "/add_to_cart", url.Values{"book_id": {book.ID}})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = app.do(http.MethodPost, "/making_an_order", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	decode(t, env.Data, &data)
	assert.Contains(t, data.Errors, "payment_method")
}
