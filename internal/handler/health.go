package handler

import (
	"context"
	"net/http"
	"time"

	"checknf/internal/infra"
	"checknf/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports database and Redis connectivity, the OCR breaker state and
// the dead-letter backlog. Never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, ocrCB *infra.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			dlq, _ = worker.DLQLength(ctx, rdb, worker.QueueOCR)
		}

		ocrStatus := "disabled"
		if ocrCB != nil {
			ocrStatus = ocrCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
			"ocr":   ocrStatus,
			"dlq":   dlq,
		})
	}
}
