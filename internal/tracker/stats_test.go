package tracker

import (
	"context"
	"testing"
	"time"

	"cart_tracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seed(t *testing.T, db *gorm.DB, createdAt time.Time, status model.CartStatus, productID uint, productName string, cartTotal int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.CartRecord{
		CreatedAt:   createdAt,
		SessionID:   "s",
		ProductID:   productID,
		ProductName: productName,
		Quantity:    1,
		CartTotal:   cartTotal,
		Status:      status,
	}).Error)
}

func TestGetStatistics_EmptyTable(t *testing.T) {
	trk, _, _ := newTestTracker(t, nil)

	stats, err := trk.GetStatistics(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.Summary.TotalCarts)
	assert.Equal(t, float64(0), stats.Summary.AbandonmentRate)
	assert.Equal(t, float64(0), stats.Summary.ConversionRate)
	assert.Equal(t, int64(0), stats.Summary.LostRevenue)
	assert.Equal(t, int64(0), stats.Summary.RecoveredRevenue)
	assert.Empty(t, stats.DailyStats)
	assert.Empty(t, stats.TopAbandonedProducts)
}

func TestGetStatistics_SummaryAndRates(t *testing.T) {
	trk, clock, db := newTestTracker(t, nil)
	now := clock.Now()

	// 3 条记录：2 abandoned + 1 converted → 66.67% / 33.33%
	seed(t, db, now.Add(-time.Hour), model.CartAbandoned, 1, "A", 1000)
	seed(t, db, now.Add(-2*time.Hour), model.CartAbandoned, 2, "B", 2500)
	seed(t, db, now.Add(-3*time.Hour), model.CartConverted, 3, "C", 4000)

	stats, err := trk.GetStatistics(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Summary.TotalCarts)
	assert.Equal(t, int64(2), stats.Summary.AbandonedCarts)
	assert.Equal(t, int64(1), stats.Summary.ConvertedCarts)
	assert.Equal(t, int64(0), stats.Summary.PendingCarts)
	assert.Equal(t, 66.67, stats.Summary.AbandonmentRate)
	assert.Equal(t, 33.33, stats.Summary.ConversionRate)
	assert.Equal(t, int64(3500), stats.Summary.LostRevenue)
	assert.Equal(t, int64(4000), stats.Summary.RecoveredRevenue)
}

func TestGetStatistics_WindowExcludesOldRecords(t *testing.T) {
	trk, clock, db := newTestTracker(t, nil)
	now := clock.Now()

	seed(t, db, now.Add(-time.Hour), model.CartPending, 1, "A", 100)
	// 窗口外：31 天前的记录不计入 30 天统计
	seed(t, db, now.AddDate(0, 0, -31), model.CartAbandoned, 2, "B", 9999)

	stats, err := trk.GetStatistics(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Summary.TotalCarts)
	assert.Equal(t, int64(0), stats.Summary.AbandonedCarts)
	assert.Equal(t, int64(0), stats.Summary.LostRevenue)
}

func TestGetStatistics_DailyBreakdownNewestFirst(t *testing.T) {
	trk, clock, db := newTestTracker(t, nil)
	now := clock.Now()

	seed(t, db, now.AddDate(0, 0, -2), model.CartAbandoned, 1, "A", 100)
	seed(t, db, now.AddDate(0, 0, -1), model.CartPending, 1, "A", 100)
	seed(t, db, now.AddDate(0, 0, -1), model.CartConverted, 2, "B", 200)

	stats, err := trk.GetStatistics(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, stats.DailyStats, 2)
	assert.Greater(t, stats.DailyStats[0].Date, stats.DailyStats[1].Date)
	assert.Equal(t, int64(2), stats.DailyStats[0].Total)
	assert.Equal(t, int64(1), stats.DailyStats[0].Pending)
	assert.Equal(t, int64(1), stats.DailyStats[0].Converted)
	assert.Equal(t, int64(1), stats.DailyStats[1].Abandoned)
}

func TestGetStatistics_TopAbandonedProducts(t *testing.T) {
	trk, clock, db := newTestTracker(t, nil)
	now := clock.Now()

	// 商品 2 被放弃 3 次，商品 1 两次；converted/pending 不参与排行
	for i := 0; i < 3; i++ {
		seed(t, db, now.Add(-time.Hour), model.CartAbandoned, 2, "Hot", 200)
	}
	for i := 0; i < 2; i++ {
		seed(t, db, now.Add(-time.Hour), model.CartAbandoned, 1, "Warm", 100)
	}
	seed(t, db, now.Add(-time.Hour), model.CartConverted, 3, "Cold", 999)

	stats, err := trk.GetStatistics(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, stats.TopAbandonedProducts, 2)
	assert.Equal(t, uint(2), stats.TopAbandonedProducts[0].ProductID)
	assert.Equal(t, "Hot", stats.TopAbandonedProducts[0].ProductName)
	assert.Equal(t, int64(3), stats.TopAbandonedProducts[0].Count)
	assert.Equal(t, int64(600), stats.TopAbandonedProducts[0].LostRevenue)
	assert.Equal(t, uint(1), stats.TopAbandonedProducts[1].ProductID)
}

func TestGetStatistics_TopProductsCappedAtTen(t *testing.T) {
	trk, clock, db := newTestTracker(t, nil)
	now := clock.Now()

	for i := 1; i <= 12; i++ {
		seed(t, db, now.Add(-time.Hour), model.CartAbandoned, uint(i), "P", 100)
	}

	stats, err := trk.GetStatistics(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, stats.TopAbandonedProducts, 10)
}

func TestExportRecords_NewestFirst(t *testing.T) {
	trk, clock, db := newTestTracker(t, nil)
	now := clock.Now()

	seed(t, db, now.Add(-3*time.Hour), model.CartAbandoned, 1, "A", 100)
	seed(t, db, now.Add(-time.Hour), model.CartPending, 2, "B", 200)

	records, err := trk.ExportRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint(2), records[0].ProductID)
	assert.Equal(t, uint(1), records[1].ProductID)
}
