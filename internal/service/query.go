package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"wisefido-wearable/internal/classifier"
	"wisefido-wearable/internal/consumer"
	"wisefido-wearable/internal/evaluator"
	"wisefido-wearable/internal/models"
	"wisefido-wearable/internal/report"
	"wisefido-wearable/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 500
)

// QueryService 对外查询接口（供 HTTP / CLI 层调用）
type QueryService struct {
	store      repository.HistoryStore
	classifier *classifier.Classifier
	cache      *consumer.CacheManager
	logger     *zap.Logger
}

// NewQueryService 创建查询服务；cache 可以为 nil
func NewQueryService(store repository.HistoryStore, cls *classifier.Classifier, cache *consumer.CacheManager, logger *zap.Logger) *QueryService {
	return &QueryService{
		store:      store,
		classifier: cls,
		cache:      cache,
		logger:     logger,
	}
}

// LatestReadings 设备最新的 n 条读数（最新的在前）
func (q *QueryService) LatestReadings(ctx context.Context, deviceID string, n int) ([]models.Reading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	return q.store.LatestReadings(ctx, deviceID, clampLimit(n))
}

// LatestAlerts 最新的 n 条报警（最新的在前）
func (q *QueryService) LatestAlerts(ctx context.Context, n int) ([]models.AlertRecord, error) {
	return q.store.RecentAlerts(ctx, clampLimit(n))
}

// Classify 按需分类，并刷新缓存
func (q *QueryService) Classify(ctx context.Context, deviceID string) (models.ClassificationResult, error) {
	if deviceID == "" {
		return models.ClassificationResult{}, fmt.Errorf("device_id is required")
	}

	result, err := q.classifier.Classify(ctx, deviceID)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	if q.cache != nil {
		if err := q.cache.SetClassification(ctx, result); err != nil {
			q.logger.Warn("Failed to cache classification", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return result, nil
}

// ExportHistory 导出设备最新的 n 条读数和相关报警为 XLSX
func (q *QueryService) ExportHistory(ctx context.Context, deviceID string, n int, w io.Writer) error {
	readings, err := q.LatestReadings(ctx, deviceID, n)
	if err != nil {
		return err
	}

	alerts, err := q.store.RecentAlerts(ctx, maxQueryLimit)
	if err != nil {
		return err
	}

	// 报警表不带 device_id，按消息中的设备标记筛选
	tag := evaluator.DeviceTag(deviceID)
	deviceAlerts := make([]models.AlertRecord, 0, len(alerts))
	for _, a := range alerts {
		if strings.Contains(a.Message, tag) {
			deviceAlerts = append(deviceAlerts, a)
		}
	}

	return report.ExportHistory(w, readings, deviceAlerts)
}

// clampLimit 限制查询条数在 [1, 500]，非正数使用默认值
func clampLimit(n int) int {
	if n <= 0 {
		return defaultQueryLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}
