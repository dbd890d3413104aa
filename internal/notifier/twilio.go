package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TwilioConfig Twilio 短信配置
type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// twilioMessage Twilio Messages API 响应
type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// twilioError Twilio 错误响应
type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// TwilioNotifier 通过 Twilio 发送短信
type TwilioNotifier struct {
	httpClient *resty.Client
	cfg        TwilioConfig
	logger     *zap.Logger
}

// NewTwilioNotifier 创建 Twilio 通知通道
// 超时由调用方的 context 控制
func NewTwilioNotifier(cfg TwilioConfig, logger *zap.Logger) *TwilioNotifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &TwilioNotifier{
		httpClient: client,
		cfg:        cfg,
		logger:     logger,
	}
}

// Configured 凭据和号码是否齐全
func (n *TwilioNotifier) Configured() bool {
	return n.cfg.AccountSID != "" && n.cfg.AuthToken != "" && n.cfg.From != "" && n.cfg.To != ""
}

// Send 发送短信
func (n *TwilioNotifier) Send(ctx context.Context, message string) error {
	if !n.Configured() {
		return ErrNotConfigured
	}

	var result twilioMessage
	var apiErr twilioError
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   n.cfg.To,
			"From": n.cfg.From,
			"Body": message,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", n.cfg.AccountSID))
	if err != nil {
		return fmt.Errorf("failed to call Twilio API: %w", err)
	}

	if resp.IsError() {
		n.logger.Error("Twilio API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("code", apiErr.Code),
			zap.String("msg", apiErr.Message),
		)
		return fmt.Errorf("Twilio API error: %s (status: %d)", apiErr.Message, resp.StatusCode())
	}

	n.logger.Info("SMS alert sent",
		zap.String("sid", result.SID),
		zap.String("status", result.Status),
	)
	return nil
}
