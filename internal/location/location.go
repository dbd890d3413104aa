package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wisefido-wearable/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrUnavailable 无法获得位置
var ErrUnavailable = errors.New("location unavailable")

// Provider 位置查询（尽力而为，失败时报警仍然发出）
type Provider interface {
	Locate(ctx context.Context) (*models.Location, error)
}

// Disabled 不做定位
type Disabled struct{}

// Locate 总是返回 ErrUnavailable
func (Disabled) Locate(ctx context.Context) (*models.Location, error) {
	return nil, ErrUnavailable
}

// ipInfoResponse ipinfo.io 响应（只取需要的字段）
type ipInfoResponse struct {
	IP   string `json:"ip"`
	City string `json:"city"`
	Loc  string `json:"loc"` // "lat,lon"
}

// IPInfoProvider 基于网关出口 IP 的粗略定位
type IPInfoProvider struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewIPInfoProvider 创建 IP 定位客户端
func NewIPInfoProvider(url, token string, timeout time.Duration, logger *zap.Logger) *IPInfoProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &IPInfoProvider{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// Locate 查询当前位置
func (p *IPInfoProvider) Locate(ctx context.Context) (*models.Location, error) {
	var body ipInfoResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetResult(&body).
		Get(p.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	loc, err := parseLoc(body.Loc)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Location resolved",
		zap.String("city", body.City),
		zap.Float64("latitude", loc.Latitude),
		zap.Float64("longitude", loc.Longitude),
	)
	return loc, nil
}

func parseLoc(s string) (*models.Location, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: malformed loc %q", ErrUnavailable, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrUnavailable, parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrUnavailable, parts[1])
	}

	return &models.Location{Latitude: lat, Longitude: lon}, nil
}
