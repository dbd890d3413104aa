package mqtt

import (
	"fmt"
	"sync"
	"time"

	"wisefido-wearable/common/config"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler 消息处理函数，返回的错误只记录日志
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client 对 paho 客户端的封装
// CleanSession 下重连会丢失订阅，所以在 OnConnect 里按记录重新订阅
type Client struct {
	client paho.Client
	broker string
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient 创建客户端并同步连接 broker
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{
		broker: cfg.Broker,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := c.clientOptions(cfg)
	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !waitToken(token, cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect mqtt %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, err)
	}
	return c, nil
}

// clientOptions 保留 paho 默认的有序派发：同一连接上的消息按到达顺序逐条回调，
// 同一设备的读数不会乱序进入评估
func (c *Client) clientOptions(cfg *config.MQTTConfig) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectionLostHandler(c.onConnectionLost).
		SetOnConnectHandler(c.onConnect)
	if cfg.KeepAlive > 0 {
		opts.SetKeepAlive(cfg.KeepAlive)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	return opts
}

// Subscribe 订阅主题并记录下来，重连后自动恢复
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := c.subscribe(topic, subscription{qos: qos, handler: handler}); err != nil {
		return err
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()

	token := c.client.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe %v: %w", topics, err)
	}
	return nil
}

// Disconnect 断开连接，最多等待 250ms 让在途消息完成
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected 当前是否已连接
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) subscribe(topic string, sub subscription) error {
	token := c.client.Subscribe(topic, sub.qos, func(_ paho.Client, msg paho.Message) {
		if err := sub.handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT message handler failed",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (c *Client) onConnect(_ paho.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for t, s := range c.subs {
		subs[t] = s
	}
	c.mu.Unlock()

	// paho 在独立 goroutine 里回调 OnConnect，这里可以阻塞等待 token
	for topic, sub := range subs {
		if err := c.subscribe(topic, sub); err != nil {
			c.logger.Error("MQTT resubscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		c.logger.Info("MQTT resubscribed", zap.String("topic", topic))
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("MQTT connection lost", zap.String("broker", c.broker), zap.Error(err))
}

// waitToken timeout<=0 时无限等待
func waitToken(token paho.Token, timeout time.Duration) bool {
	if timeout <= 0 {
		return token.Wait()
	}
	return token.WaitTimeout(timeout)
}
