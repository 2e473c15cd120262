package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cart_tracker/internal/catalog"
	"cart_tracker/internal/config"
	"cart_tracker/internal/model"
	"cart_tracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testAdminToken = "test-admin-token"

// newTestRouter 只挂读侧与目录路由所需的依赖；埋点路由依赖 Redis，
// 在这里不发请求就不会被触发。
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.CartRecord{}, &model.Product{}))

	cfg := config.AppConfig{
		AdminToken:      testAdminToken,
		TrackRateLimit:  1000,
		TrackRateWindow: time.Second,
	}
	cat := catalog.New(db, nil, time.Hour)
	trk := tracker.New(db, cat, 30*time.Minute, 90*24*time.Hour)

	r := gin.New()
	Setup(r, trk, cat, nil, cfg)
	return r, db
}

func TestGetStats_RequiresAdminToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetStats_ReturnsSummary(t *testing.T) {
	r, db := newTestRouter(t)
	require.NoError(t, db.Create(&model.CartRecord{
		CreatedAt: time.Now().Add(-time.Hour),
		SessionID: "s1", ProductID: 42, ProductName: "Mug",
		Quantity: 1, CartTotal: 1500, Status: model.CartAbandoned,
	}).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats?period=7", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Code int `json:"code"`
		Data struct {
			Summary struct {
				TotalCarts      int64   `json:"total_carts"`
				AbandonedCarts  int64   `json:"abandoned_carts"`
				AbandonmentRate float64 `json:"abandonment_rate"`
				LostRevenue     int64   `json:"lost_revenue"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 0, out.Code)
	assert.Equal(t, int64(1), out.Data.Summary.TotalCarts)
	assert.Equal(t, int64(1), out.Data.Summary.AbandonedCarts)
	assert.Equal(t, float64(100), out.Data.Summary.AbandonmentRate)
	assert.Equal(t, int64(1500), out.Data.Summary.LostRevenue)
}

func TestGetStats_RejectsBadPeriod(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats?period=abc", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportCSV(t *testing.T) {
	r, db := newTestRouter(t)
	orderID := uint(900)
	convertedAt := time.Now().Add(-time.Minute)
	require.NoError(t, db.Create(&model.CartRecord{
		CreatedAt: time.Now().Add(-time.Hour),
		SessionID: "s1", ProductID: 42, ProductName: "Mug",
		Quantity: 2, Price: 750, CartTotal: 1500,
		Status: model.CartConverted, OrderID: &orderID, ConvertedAt: &convertedAt,
	}).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Session ID,User ID"))
	assert.Contains(t, lines[1], "s1")
	assert.Contains(t, lines[1], "converted")
	assert.Contains(t, lines[1], "900")
}

func TestProducts_CreateAndList(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader(`{"name":"Mug","price":1299}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", testAdminToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Code int             `json:"code"`
		Data []model.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "Mug", out.Data[0].Name)
	assert.Equal(t, int64(1299), out.Data[0].Price)
}

func TestCreateProduct_RequiresAdminToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader(`{"name":"Mug","price":1299}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
