package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIPInfoProvider_Locate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"1.2.3.4","city":"Bengaluru","loc":"12.9716,77.5946"}`))
	}))
	defer server.Close()

	p := NewIPInfoProvider(server.URL, "tok", time.Second, zap.NewNop())
	loc, err := p.Locate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.9716, loc.Latitude, 1e-9)
	assert.InDelta(t, 77.5946, loc.Longitude, 1e-9)
}

func TestIPInfoProvider_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"missing loc", http.StatusOK, `{"ip":"1.2.3.4"}`},
		{"malformed loc", http.StatusOK, `{"loc":"north"}`},
		{"out of range", http.StatusOK, `{"loc":"95.0,10.0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewIPInfoProvider(server.URL, "", time.Second, zap.NewNop())
			loc, err := p.Locate(context.Background())
			assert.Nil(t, loc)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestDisabled(t *testing.T) {
	loc, err := Disabled{}.Locate(context.Background())
	assert.Nil(t, loc)
	assert.ErrorIs(t, err, ErrUnavailable)
}
