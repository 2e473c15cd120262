package router

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cart_tracker/internal/catalog"
	"cart_tracker/internal/config"
	"cart_tracker/internal/middleware"
	"cart_tracker/internal/model"
	"cart_tracker/internal/queue"
	"cart_tracker/internal/tracker"
	rediskey "cart_tracker/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, trk *tracker.Tracker, cat *catalog.Store, rdb *rd.Client, cfg config.AppConfig) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	// Products（商品目录）
	r.GET("/api/products", listProducts(cat))
	r.POST("/api/products", createProduct(cat, cfg.AdminToken))
	// Track（埋点入口，写侧走 outbox 异步落库）
	r.POST("/api/track/cart", middleware.RedisRateLimit(rdb, cfg.TrackRateLimit, cfg.TrackRateWindow), trackCartAdd(rdb, cfg.TrackEventStream))
	r.POST("/api/track/order", trackOrderCompleted(rdb, cfg.TrackEventStream))
	r.GET("/api/track/result/:event_id", getTrackResult(rdb))
	// Dashboard（读侧，管理员令牌保护）
	r.GET("/api/stats", getStats(trk, cfg.AdminToken))
	r.GET("/api/export", exportCSV(trk, cfg.AdminToken))
}

// listProducts 查询商品目录。
func listProducts(cat *catalog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := cat.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// createProduct 新增目录条目，供加购事件解析名称/价格。
func createProduct(cat *catalog.Store, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != adminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "admin token 无效"})
			return
		}
		var req struct {
			Name  string `json:"name" binding:"required"`
			Price int64  `json:"price" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		p, err := cat.Create(c.Request.Context(), req.Name, req.Price)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

// trackCartAdd 是加购埋点入口。
// 只做参数校验 + 原子入流，立即返回 event_id；落库由 Relay/Consumer 异步完成。
// 店面埋点是火忘型调用，核心语义里不会向它回传业务错误。
func trackCartAdd(rdb *rd.Client, stream string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			SessionID   string `json:"session_id" binding:"required"`
			UserID      int64  `json:"user_id" binding:"omitempty,min=1"`
			UserEmail   string `json:"user_email" binding:"omitempty,email"`
			ProductID   uint   `json:"product_id" binding:"required,min=1"`
			ProductName string `json:"product_name"`
			Quantity    int    `json:"quantity" binding:"omitempty,min=1"`
			Price       *int64 `json:"price" binding:"omitempty,min=0"`
			CartTotal   int64  `json:"cart_total" binding:"omitempty,min=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if req.Quantity <= 0 {
			req.Quantity = 1
		}

		// event_id 作为整条链路的追踪与幂等标识。
		eventID := uuid.New().String()
		ev := queue.TrackEvent{
			EventID:     eventID,
			Type:        queue.EventCartAdd,
			SessionID:   req.SessionID,
			UserID:      req.UserID,
			UserEmail:   req.UserEmail,
			ProductID:   req.ProductID,
			ProductName: req.ProductName,
			Quantity:    req.Quantity,
			Price:       req.Price,
			CartTotal:   req.CartTotal,
			UserAgent:   c.Request.UserAgent(),
			IPAddress:   c.ClientIP(),
		}
		if err := queue.EnqueueTrackEvent(c.Request.Context(), rdb, stream, ev); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "enqueue failed: " + err.Error()})
			return
		}
		// 初始状态尽力写，失败不影响主流程。
		_ = rediskey.PutEventState(c.Request.Context(), rdb, eventID, rediskey.EventPending, "", 24*time.Hour)

		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{
				"event_id": eventID,
				"status":   "pending",
			},
		})
	}
}

// trackOrderCompleted 接收商城侧的订单完成回调，身份键全部可选。
func trackOrderCompleted(rdb *rd.Client, stream string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			OrderID    uint   `json:"order_id" binding:"required,min=1"`
			SessionID  string `json:"session_id"`
			UserID     int64  `json:"user_id" binding:"omitempty,min=1"`
			UserEmail  string `json:"user_email" binding:"omitempty,email"`
			ProductIDs []uint `json:"product_ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		eventID := uuid.New().String()
		ev := queue.TrackEvent{
			EventID:    eventID,
			Type:       queue.EventOrderCompleted,
			OrderID:    req.OrderID,
			SessionID:  req.SessionID,
			UserID:     req.UserID,
			UserEmail:  req.UserEmail,
			ProductIDs: req.ProductIDs,
		}
		if err := queue.EnqueueTrackEvent(c.Request.Context(), rdb, stream, ev); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "enqueue failed: " + err.Error()})
			return
		}
		_ = rediskey.PutEventState(c.Request.Context(), rdb, eventID, rediskey.EventPending, "", 24*time.Hour)

		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{
				"event_id": eventID,
				"status":   "pending",
			},
		})
	}
}

// getTrackResult 根据 event_id 查询事件异步处理状态。
func getTrackResult(rdb *rd.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID := c.Param("event_id")
		if eventID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "event_id 必填"})
			return
		}

		state, found, err := rediskey.GetEventState(c.Request.Context(), rdb, eventID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "event_id 不存在"})
			return
		}

		data := gin.H{
			"event_id": state.EventID,
			"status":   state.Status,
		}
		if state.Reason != "" {
			data["reason"] = state.Reason
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
	}
}

// getStats 返回看板统计，period 为回看天数，默认 30。
func getStats(trk *tracker.Tracker, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != adminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "admin token 无效"})
			return
		}

		period := 30
		if v := c.Query("period"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil || p <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "period 无效"})
				return
			}
			period = p
		}

		stats, err := trk.GetStatistics(c.Request.Context(), period)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": stats})
	}
}

// exportCSV 导出全量记录。列顺序与看板约定保持一致，不要调整。
func exportCSV(trk *tracker.Tracker, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != adminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "admin token 无效"})
			return
		}

		records, err := trk.ExportRecords(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		filename := "abandoned-carts-" + time.Now().Format("2006-01-02") + ".csv"
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

		w := csv.NewWriter(c.Writer)
		_ = w.Write([]string{
			"ID", "Session ID", "User ID", "User Email", "Product ID", "Product Name",
			"Quantity", "Price", "Cart Total", "Status", "User Agent", "IP Address",
			"Created At", "Updated At", "Converted At", "Order ID",
		})
		for _, rec := range records {
			_ = w.Write(csvRow(rec))
		}
		w.Flush()
	}
}

func csvRow(rec model.CartRecord) []string {
	userID := ""
	if rec.UserID != nil {
		userID = strconv.FormatInt(*rec.UserID, 10)
	}
	convertedAt := ""
	if rec.ConvertedAt != nil {
		convertedAt = rec.ConvertedAt.Format(time.DateTime)
	}
	orderID := ""
	if rec.OrderID != nil {
		orderID = strconv.FormatUint(uint64(*rec.OrderID), 10)
	}
	return []string{
		strconv.FormatUint(uint64(rec.ID), 10),
		rec.SessionID,
		userID,
		rec.UserEmail,
		strconv.FormatUint(uint64(rec.ProductID), 10),
		rec.ProductName,
		strconv.Itoa(rec.Quantity),
		fmt.Sprintf("%d", rec.Price),
		fmt.Sprintf("%d", rec.CartTotal),
		string(rec.Status),
		rec.UserAgent,
		rec.IPAddress,
		rec.CreatedAt.Format(time.DateTime),
		rec.UpdatedAt.Format(time.DateTime),
		convertedAt,
		orderID,
	}
}
