package mqtt

import (
	"testing"
	"time"

	"wisefido-wearable/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientOptions_OrderedDelivery(t *testing.T) {
	c := &Client{broker: "tcp://broker:1883", logger: zap.NewNop(), subs: make(map[string]subscription)}
	opts := c.clientOptions(&config.MQTTConfig{
		Broker:         "tcp://broker:1883",
		ClientID:       "wisefido-wearable",
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 5 * time.Second,
	})

	// 同一设备的读数必须按到达顺序评估
	assert.True(t, opts.Order)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.CleanSession)
	assert.Equal(t, "wisefido-wearable", opts.ClientID)
	assert.Equal(t, int64(30), opts.KeepAlive)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker:1883", opts.Servers[0].Host)
}

func TestClientOptions_DefaultsKept(t *testing.T) {
	c := &Client{logger: zap.NewNop(), subs: make(map[string]subscription)}
	opts := c.clientOptions(&config.MQTTConfig{Broker: "tcp://localhost:1883"})

	assert.True(t, opts.Order)
	assert.Equal(t, int64(30), opts.KeepAlive)
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
}
