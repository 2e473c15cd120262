package tracker

import (
	"context"
	"math"

	"cart_tracker/internal/model"
)

// Summary 是看板顶部的汇总卡片数据。金额单位分，比率为 0~100 的百分数。
type Summary struct {
	TotalCarts       int64   `json:"total_carts"`
	AbandonedCarts   int64   `json:"abandoned_carts"`
	ConvertedCarts   int64   `json:"converted_carts"`
	PendingCarts     int64   `json:"pending_carts"`
	AbandonmentRate  float64 `json:"abandonment_rate"`
	ConversionRate   float64 `json:"conversion_rate"`
	LostRevenue      int64   `json:"lost_revenue"`
	RecoveredRevenue int64   `json:"recovered_revenue"`
}

// DailyStat 是按天聚合的一行，date 形如 2026-08-30。
type DailyStat struct {
	Date      string `json:"date"`
	Total     int64  `json:"total"`
	Abandoned int64  `json:"abandoned"`
	Converted int64  `json:"converted"`
	Pending   int64  `json:"pending"`
}

// TopAbandonedProduct 是被放弃次数最多的商品及其累计损失金额。
type TopAbandonedProduct struct {
	ProductID   uint   `gorm:"column:product_id" json:"product_id"`
	ProductName string `gorm:"column:product_name" json:"product_name"`
	Count       int64  `gorm:"column:count" json:"count"`
	LostRevenue int64  `gorm:"column:lost_revenue" json:"lost_revenue"`
}

// Statistics 聚合看板所需的全部只读统计。
type Statistics struct {
	Summary              Summary               `json:"summary"`
	DailyStats           []DailyStat           `json:"daily_stats"`
	TopAbandonedProducts []TopAbandonedProduct `json:"top_abandoned_products"`
}

// GetStatistics 汇总最近 periodDays 天（按 created_at 圈定）的统计。
// 纯只读，空表时所有计数、金额、比率均为 0。
func (t *Tracker) GetStatistics(ctx context.Context, periodDays int) (Statistics, error) {
	if periodDays <= 0 {
		periodDays = 30
	}
	from := t.now().AddDate(0, 0, -periodDays)
	db := t.db.WithContext(ctx)

	var rollup struct {
		Total            int64
		Abandoned        int64
		Converted        int64
		Pending          int64
		LostRevenue      int64
		RecoveredRevenue int64
	}
	err := db.Raw(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'abandoned' THEN 1 ELSE 0 END), 0) AS abandoned,
			COALESCE(SUM(CASE WHEN status = 'converted' THEN 1 ELSE 0 END), 0) AS converted,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'abandoned' THEN cart_total ELSE 0 END), 0) AS lost_revenue,
			COALESCE(SUM(CASE WHEN status = 'converted' THEN cart_total ELSE 0 END), 0) AS recovered_revenue
		FROM cart_records
		WHERE created_at >= ?`, from).Scan(&rollup).Error
	if err != nil {
		return Statistics{}, err
	}

	var daily []DailyStat
	err = db.Raw(`
		SELECT
			DATE(created_at) AS date,
			COUNT(*) AS total,
			SUM(CASE WHEN status = 'abandoned' THEN 1 ELSE 0 END) AS abandoned,
			SUM(CASE WHEN status = 'converted' THEN 1 ELSE 0 END) AS converted,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending
		FROM cart_records
		WHERE created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY date DESC`, from).Scan(&daily).Error
	if err != nil {
		return Statistics{}, err
	}

	var top []TopAbandonedProduct
	err = db.Raw(`
		SELECT
			product_id,
			product_name,
			COUNT(*) AS count,
			COALESCE(SUM(cart_total), 0) AS lost_revenue
		FROM cart_records
		WHERE status = 'abandoned' AND created_at >= ?
		GROUP BY product_id, product_name
		ORDER BY count DESC
		LIMIT 10`, from).Scan(&top).Error
	if err != nil {
		return Statistics{}, err
	}

	return Statistics{
		Summary: Summary{
			TotalCarts:       rollup.Total,
			AbandonedCarts:   rollup.Abandoned,
			ConvertedCarts:   rollup.Converted,
			PendingCarts:     rollup.Pending,
			AbandonmentRate:  rate(rollup.Abandoned, rollup.Total),
			ConversionRate:   rate(rollup.Converted, rollup.Total),
			LostRevenue:      rollup.LostRevenue,
			RecoveredRevenue: rollup.RecoveredRevenue,
		},
		DailyStats:           daily,
		TopAbandonedProducts: top,
	}, nil
}

// ExportRecords 按创建时间倒序返回全部记录，供 CSV 导出。
func (t *Tracker) ExportRecords(ctx context.Context) ([]model.CartRecord, error) {
	var records []model.CartRecord
	err := t.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// rate 计算 part/total 的百分比，保留两位小数；total 为 0 时返回 0。
func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
