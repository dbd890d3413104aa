package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rediscommon "wisefido-wearable/common/redis"
	"wisefido-wearable/internal/config"
	"wisefido-wearable/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CacheManager Redis 缓存管理器
//
// 缓存内容：
//   - {prefix}{device_id}:classification 最近一次分类结果（TTL）
//   - {prefix}{device_id}:alerts          最近的报警记录列表（LPUSH + LTRIM）
//   - 报警流（XADD），供下游推送服务消费
//
// 缓存只是副本，历史库才是权威数据。
type CacheManager struct {
	config            *config.Config
	redisClient       *redis.Client
	classificationTTL time.Duration
	logger            *zap.Logger
}

// alertStreamEntry 报警流消息
type alertStreamEntry struct {
	DispatchID string             `json:"dispatch_id"`
	DeviceID   string             `json:"device_id"`
	Alert      models.AlertRecord `json:"alert"`
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:            cfg,
		redisClient:       redisClient,
		classificationTTL: 3 * cfg.Wearable.Classifier.Interval,
		logger:            logger,
	}
}

func (c *CacheManager) classificationKey(deviceID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Wearable.Cache.KeyPrefix,
		deviceID,
		c.config.Wearable.Cache.ClassificationSuffix,
	)
}

func (c *CacheManager) alertsKey(deviceID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Wearable.Cache.KeyPrefix,
		deviceID,
		c.config.Wearable.Cache.AlertsSuffix,
	)
}

// SetClassification 缓存分类结果
func (c *CacheManager) SetClassification(ctx context.Context, result models.ClassificationResult) error {
	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}

	key := c.classificationKey(result.DeviceID)
	if err := c.redisClient.Set(ctx, key, jsonData, c.classificationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set classification cache: %w", err)
	}
	return nil
}

// GetClassification 读取缓存的分类结果，未命中返回 nil, nil
func (c *CacheManager) GetClassification(ctx context.Context, deviceID string) (*models.ClassificationResult, error) {
	val, err := c.redisClient.Get(ctx, c.classificationKey(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get classification cache: %w", err)
	}

	var result models.ClassificationResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification: %w", err)
	}
	return &result, nil
}

// PushAlert 把报警记录加入设备的最近报警列表
func (c *CacheManager) PushAlert(ctx context.Context, deviceID string, record models.AlertRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	key := c.alertsKey(deviceID)
	pipe := c.redisClient.TxPipeline()
	pipe.LPush(ctx, key, jsonData)
	if limit := c.config.Wearable.Cache.AlertsLimit; limit > 0 {
		pipe.LTrim(ctx, key, 0, limit-1)
	}
	if ttl := c.config.Wearable.Cache.AlertsTTL; ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push alert cache: %w", err)
	}
	return nil
}

// RecentAlerts 读取设备最近的报警（最新的在前）
func (c *CacheManager) RecentAlerts(ctx context.Context, deviceID string) ([]models.AlertRecord, error) {
	vals, err := c.redisClient.LRange(ctx, c.alertsKey(deviceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read alert cache: %w", err)
	}

	alerts := make([]models.AlertRecord, 0, len(vals))
	for _, v := range vals {
		var a models.AlertRecord
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			c.logger.Warn("Skipping malformed cached alert", zap.String("device_id", deviceID), zap.Error(err))
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// PublishAlert 发布报警到 Redis Streams
func (c *CacheManager) PublishAlert(ctx context.Context, deviceID string, record models.AlertRecord) (string, error) {
	entry := alertStreamEntry{
		DispatchID: uuid.New().String(),
		DeviceID:   deviceID,
		Alert:      record,
	}
	return rediscommon.PublishJSONToStream(ctx, c.redisClient,
		c.config.Wearable.Cache.AlertStream,
		c.config.Wearable.Cache.AlertStreamMaxLen,
		entry,
	)
}

// AlertPersisted 报警落库后的扇出，失败只记录日志
func (c *CacheManager) AlertPersisted(ctx context.Context, deviceID string, record models.AlertRecord) {
	if err := c.PushAlert(ctx, deviceID, record); err != nil {
		c.logger.Warn("Failed to cache alert",
			zap.String("device_id", deviceID),
			zap.Int64("alert_id", record.ID),
			zap.Error(err),
		)
	}

	streamID, err := c.PublishAlert(ctx, deviceID, record)
	if err != nil {
		c.logger.Warn("Failed to publish alert to Redis Streams",
			zap.String("stream", c.config.Wearable.Cache.AlertStream),
			zap.Int64("alert_id", record.ID),
			zap.Error(err),
		)
		return
	}

	c.logger.Debug("Published alert to Redis Streams",
		zap.String("device_id", deviceID),
		zap.String("stream", c.config.Wearable.Cache.AlertStream),
		zap.String("stream_id", streamID),
	)
}
