package consumer

import (
	"context"
	"fmt"
	"strings"

	mqttcommon "wisefido-wearable/common/mqtt"
	"wisefido-wearable/internal/metrics"
	"wisefido-wearable/internal/models"
	"wisefido-wearable/internal/normalizer"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// sampleKind 组合 JSON 样本的主题后缀
const sampleKind = "sample"

// Subscriber MQTT 订阅（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Ingester 规范化读数的处理入口
type Ingester interface {
	Ingest(ctx context.Context, reading models.Reading) error
}

// MQTTConsumer 设备数据消费者
// 主题格式: wearable/{device_id}/{heart_rate|step_count|battery|spo2|sample}
type MQTTConsumer struct {
	subscriber Subscriber
	ingester   Ingester
	topic      string
	qos        byte
	clock      clockwork.Clock
	metrics    *metrics.Metrics
	logger     *zap.Logger

	ctx context.Context
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(
	subscriber Subscriber,
	ingester Ingester,
	topic string,
	qos byte,
	clock clockwork.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		subscriber: subscriber,
		ingester:   ingester,
		topic:      topic,
		qos:        qos,
		clock:      clock,
		metrics:    m,
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start 订阅设备主题，消息在 paho 的回调 goroutine 中处理
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to wearable topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

// handleMessage 处理MQTT消息
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	reading, err := c.parse(topic, payload)
	if err != nil {
		c.metrics.ReadingRejected()
		c.logger.Debug("Discarding reading",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}

	return c.ingester.Ingest(c.ctx, reading)
}

// parse 从主题和负载构建规范化读数
func (c *MQTTConsumer) parse(topic string, payload []byte) (models.Reading, error) {
	deviceID, kind, err := ParseTopic(topic)
	if err != nil {
		return models.Reading{}, err
	}

	now := c.clock.Now()
	if kind == sampleKind {
		sample, err := normalizer.DecodeSample(deviceID, payload)
		if err != nil {
			return models.Reading{}, err
		}
		// 样本自带采样时间时以它为准，重投递的同一样本会被历史库去重
		if sample.Timestamp.IsZero() {
			sample.Timestamp = now
		}
		return normalizer.Normalize(sample)
	}

	return normalizer.NormalizeNotification(models.Notification{
		DeviceID:   deviceID,
		Kind:       models.CharacteristicKind(kind),
		Payload:    payload,
		ReceivedAt: now,
	})
}

// ParseTopic 拆分主题，返回设备 ID 和特征类型
func ParseTopic(topic string) (deviceID, kind string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: invalid topic format: %s", normalizer.ErrMalformedPayload, topic)
	}
	return parts[1], parts[2], nil
}
