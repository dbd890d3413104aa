package classifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wisefido-wearable/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type memorySource struct {
	readings map[string][]models.Reading
	failFor  string
}

func (m *memorySource) RecentReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error) {
	if deviceID == m.failFor {
		return nil, errors.New("database is locked")
	}
	var out []models.Reading
	for _, r := range m.readings[deviceID] {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memorySource) ActiveDevices(ctx context.Context, since time.Time) ([]string, error) {
	var out []string
	for id := range m.readings {
		out = append(out, id)
	}
	return out, nil
}

type memorySink struct {
	mu      sync.Mutex
	results map[string]models.ClassificationResult
}

func (m *memorySink) SetClassification(ctx context.Context, result models.ClassificationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]models.ClassificationResult{}
	}
	m.results[result.DeviceID] = result
	return nil
}

func defaultConfig() Config {
	return Config{Interval: 5 * time.Second, Window: 30 * time.Second, RunningStepThreshold: 10}
}

func TestEmotionFor(t *testing.T) {
	tests := []struct {
		mean float64
		want models.EmotionLabel
	}{
		{45, models.EmotionCalm},
		{59.9, models.EmotionCalm},
		{60, models.EmotionNormal},
		{100, models.EmotionNormal},
		{100.5, models.EmotionExcited},
		{130, models.EmotionExcited},
		{131, models.EmotionAnxious},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EmotionFor(tt.mean), "mean=%v", tt.mean)
	}
}

func TestClassify_MeanBoundaryIsNormal(t *testing.T) {
	source := &memorySource{readings: map[string][]models.Reading{
		"A": {
			{DeviceID: "A", Timestamp: t0, HeartRate: models.IntPtr(55)},
			{DeviceID: "A", Timestamp: t0.Add(10 * time.Second), HeartRate: models.IntPtr(65)},
		},
	}}
	c := NewClassifier(source, nil, clockwork.NewFakeClockAt(t0.Add(20*time.Second)), defaultConfig(), nil, zap.NewNop())

	result, err := c.Classify(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, result.MeanHeartRate)
	assert.Equal(t, 60.0, *result.MeanHeartRate)
	assert.Equal(t, models.EmotionNormal, result.Emotion)
	assert.Equal(t, models.ActivityInsufficientData, result.Activity)
	assert.Equal(t, 30*time.Second, result.Window)
}

func TestClassify_StepDecreaseIsNotRunning(t *testing.T) {
	source := &memorySource{readings: map[string][]models.Reading{
		"A": {
			{DeviceID: "A", Timestamp: t0, StepCount: models.IntPtr(100)},
			{DeviceID: "A", Timestamp: t0.Add(5 * time.Second), StepCount: models.IntPtr(95)},
			{DeviceID: "A", Timestamp: t0.Add(25 * time.Second), StepCount: models.IntPtr(80)},
		},
	}}
	c := NewClassifier(source, nil, clockwork.NewFakeClockAt(t0.Add(29*time.Second)), defaultConfig(), nil, zap.NewNop())

	result, err := c.Classify(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, result.StepDelta)
	assert.Equal(t, -20, *result.StepDelta)
	assert.Equal(t, models.ActivityNotRunning, result.Activity)
	assert.Equal(t, models.EmotionUnknown, result.Emotion)
}

func TestSummarize_Running(t *testing.T) {
	result := Summarize([]models.Reading{
		{StepCount: models.IntPtr(100), HeartRate: models.IntPtr(0)},
		{StepCount: models.IntPtr(111), HeartRate: models.IntPtr(120)},
	}, 10)

	assert.Equal(t, models.ActivityRunning, result.Activity)
	assert.Equal(t, models.EmotionExcited, result.Emotion)

	// 恰好等于阈值不算跑步
	result = Summarize([]models.Reading{
		{StepCount: models.IntPtr(100)},
		{StepCount: models.IntPtr(110)},
	}, 10)
	assert.Equal(t, models.ActivityNotRunning, result.Activity)
}

func TestSummarize_ZeroHeartRateExcludedFromMean(t *testing.T) {
	result := Summarize([]models.Reading{
		{HeartRate: models.IntPtr(0)},
		{HeartRate: models.IntPtr(70)},
		{HeartRate: models.IntPtr(80)},
	}, 10)

	require.NotNil(t, result.MeanHeartRate)
	assert.InDelta(t, 75.0, *result.MeanHeartRate, 1e-9)
	assert.Equal(t, models.EmotionNormal, result.Emotion)
	assert.Equal(t, 3, result.SampleCount)

	// 只有无信号的读数时没有情绪结论
	result = Summarize([]models.Reading{
		{HeartRate: models.IntPtr(0)},
		{HeartRate: models.IntPtr(0)},
	}, 10)
	assert.Nil(t, result.MeanHeartRate)
	assert.Equal(t, models.EmotionUnknown, result.Emotion)
}

func TestClassify_WindowExcludesOldReadings(t *testing.T) {
	source := &memorySource{readings: map[string][]models.Reading{
		"A": {
			{DeviceID: "A", Timestamp: t0.Add(-time.Minute), StepCount: models.IntPtr(0), HeartRate: models.IntPtr(150)},
			{DeviceID: "A", Timestamp: t0, StepCount: models.IntPtr(500), HeartRate: models.IntPtr(70)},
		},
	}}
	c := NewClassifier(source, nil, clockwork.NewFakeClockAt(t0.Add(time.Second)), defaultConfig(), nil, zap.NewNop())

	result, err := c.Classify(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SampleCount)
	assert.Equal(t, models.EmotionNormal, result.Emotion)
	assert.Equal(t, models.ActivityInsufficientData, result.Activity)
}

func TestRunOnce_IsolatesDeviceFailures(t *testing.T) {
	source := &memorySource{
		readings: map[string][]models.Reading{
			"A":   {{DeviceID: "A", Timestamp: t0, HeartRate: models.IntPtr(80)}},
			"bad": {{DeviceID: "bad", Timestamp: t0, HeartRate: models.IntPtr(80)}},
		},
		failFor: "bad",
	}
	sink := &memorySink{}
	c := NewClassifier(source, sink, clockwork.NewFakeClockAt(t0), defaultConfig(), nil, zap.NewNop())

	assert.Equal(t, 1, c.RunOnce(context.Background()))
	assert.Contains(t, sink.results, "A")
	assert.NotContains(t, sink.results, "bad")
}

func TestRun_StopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	source := &memorySource{readings: map[string][]models.Reading{
		"A": {{DeviceID: "A", Timestamp: t0, HeartRate: models.IntPtr(80)}},
	}}
	sink := &memorySink{}
	c := NewClassifier(source, sink, clock, defaultConfig(), nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)

	assert.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.results) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("classifier did not stop")
	}
}
