package notifier

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotConfigured 通知通道未配置（缺少凭据或联系人）
var ErrNotConfigured = errors.New("notifier not configured")

// Notifier 外部通知通道（短信等）
// Send 成功返回 nil；任何失败都返回 error，由调用方决定报警记录状态
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// LogNotifier 只写日志的通知通道（本地开发 / 未配置短信时使用）
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知通道
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send 输出报警消息
func (n *LogNotifier) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Warn("Alert notification",
		zap.String("channel", "log"),
		zap.String("message", message),
	)
	return nil
}
