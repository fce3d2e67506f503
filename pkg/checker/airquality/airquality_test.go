/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package airquality

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/metrics"
	"github.com/carverauto/airsensor/pkg/models"
	"github.com/carverauto/airsensor/pkg/sensor"
	"github.com/carverauto/airsensor/pkg/transport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
	c   chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), c: make(chan time.Time)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

func (f *fakeClock) Ticker(time.Duration) Ticker { return f }

func (f *fakeClock) Chan() <-chan time.Time { return f.c }

func (*fakeClock) Stop() {}

func features(t *testing.T, doc string) accessory.Features {
	t.Helper()

	var f accessory.Features
	require.NoError(t, json.Unmarshal([]byte(doc), &f))

	return f
}

// sensorServer serves whatever document is stored in body.
func sensorServer(t *testing.T, body *atomic.Value) (*httptest.Server, transport.Puller) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	t.Cleanup(srv.Close)

	addr := srv.Listener.Addr().(*net.TCPAddr)
	ep := transport.Endpoint{Raw: srv.URL, Scheme: transport.SchemeHTTP, Host: addr.IP.String(), Port: addr.Port}

	return srv, transport.NewHTTPPuller(ep, time.Second, 0, logger.NewTestLogger())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "no accessories",
			config:  Config{},
			wantErr: errNoAccessories,
		},
		{
			name:    "missing name",
			config:  Config{Accessories: []AccessoryConfig{{APIEndpoint: "http://10.0.0.2"}}},
			wantErr: errAccessoryNameMissing,
		},
		{
			name: "duplicate name",
			config: Config{Accessories: []AccessoryConfig{
				{Name: "office", APIEndpoint: "http://10.0.0.2"},
				{Name: "office", APIEndpoint: "http://10.0.0.3"},
			}},
			wantErr: errDuplicateAccessory,
		},
		{
			name:    "negative timeout",
			config:  Config{Accessories: []AccessoryConfig{{Name: "office", Timeout: -1}}},
			wantErr: errNegativeTimeout,
		},
		{
			name:    "negative interval",
			config:  Config{PollInterval: models.Duration(-time.Second), Accessories: []AccessoryConfig{{Name: "office"}}},
			wantErr: errNegativeInterval,
		},
		{
			name:   "unknown scheme still loads",
			config: Config{Accessories: []AccessoryConfig{{Name: "office", APIEndpoint: "ftp://10.0.0.2"}}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.config.Validate()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Accessories: []AccessoryConfig{{Name: "office", APIEndpoint: "http://10.0.0.2"}}}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaultPollInterval, cfg.PollInterval.Std())
	assert.Equal(t, 30*time.Second, cfg.Accessories[0].StaleTimeout())

	info := cfg.Accessories[0].Info()
	assert.Equal(t, "ACME Pty Ltd", info.Manufacturer)
	assert.Equal(t, "Air Quality Sensor", info.Model)
	assert.NotEmpty(t, info.FirmwareRevision)
	assert.Equal(t, info.SerialNumber, cfg.Accessories[0].Info().SerialNumber)

	other := AccessoryConfig{Name: "garage"}
	assert.NotEqual(t, info.SerialNumber, other.Info().SerialNumber)
}

func TestConfigFromJSON(t *testing.T) {
	t.Parallel()

	doc := `{
		"poll_interval": "10s",
		"accessories": [{
			"name": "Living Room",
			"api_endpoint": "udp://192.168.1.20:5000",
			"timeout": 60,
			"udp_timeout": "2s",
			"features": {"aqi": true, "pm10": true, "co2": true}
		}]
	}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(doc), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10*time.Second, cfg.PollInterval.Std())

	acc := cfg.Accessories[0]
	assert.Equal(t, time.Minute, acc.StaleTimeout())
	assert.Equal(t, 2*time.Second, acc.TransportOptions().UDPTimeout)
	assert.True(t, acc.Features.Enabled(accessory.AirQuality))
	assert.True(t, acc.Features.Enabled(accessory.PM10Density))
	assert.True(t, acc.Features.Enabled(accessory.CarbonDioxideDetected))
	assert.False(t, acc.Features.Enabled(accessory.CarbonDioxideLevel))
}

func TestConfigFractionalTimeout(t *testing.T) {
	t.Parallel()

	doc := `{"accessories": [{"name": "nursery", "api_endpoint": "http://10.0.0.9", "timeout": 2.5}]}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(doc), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2500*time.Millisecond, cfg.Accessories[0].StaleTimeout())
}

func TestHTTPPullEndToEnd(t *testing.T) {
	t.Parallel()

	var body atomic.Value
	body.Store(`{"temperature":21.5,"humidity":40,"co2_ppm":450}`)

	_, puller := sensorServer(t, &body)

	clock := newFakeClock()
	registry := accessory.NewRegistry()

	cfg := &Config{Accessories: []AccessoryConfig{{
		Name:        "office",
		APIEndpoint: "http://10.0.0.2",
		Features:    features(t, `{"co2": true, "co2_ppm": true}`),
	}}}

	svc, err := NewService(cfg, registry, logger.NewTestLogger(), WithClock(clock), WithPuller("office", puller))
	require.NoError(t, err)

	ctx := context.Background()
	m, ok := svc.Monitor("office")
	require.True(t, ok)
	require.NoError(t, m.Binding().Register(ctx))

	require.NoError(t, m.Cycle(ctx))

	read := func(c accessory.Characteristic) interface{} {
		t.Helper()

		v, err := registry.Read("office", c)
		require.NoError(t, err)

		return v
	}

	assert.InDelta(t, 450.0, read(accessory.CarbonDioxideLevel), 0)
	assert.Equal(t, accessory.LevelsNormal, read(accessory.CarbonDioxideDetected))
	assert.InDelta(t, 450.0, read(accessory.CarbonDioxidePeakLevel), 0)
	assert.InDelta(t, 21.5, read(accessory.CurrentTemperature), 0)

	body.Store(`{"temperature":21.5,"humidity":40,"co2_ppm":500}`)
	clock.Advance(5 * time.Second)
	require.NoError(t, m.Cycle(ctx))

	assert.InDelta(t, 500.0, read(accessory.CarbonDioxideLevel), 0)
	assert.InDelta(t, 500.0, read(accessory.CarbonDioxidePeakLevel), 0)

	last, ok := registry.LastUpdates("office")
	require.True(t, ok)
	assert.InDelta(t, 500.0, last[accessory.CarbonDioxideLevel].Value, 0)

	available, msg := svc.Check(ctx)
	assert.True(t, available)

	var statuses map[string]Status
	require.NoError(t, json.Unmarshal([]byte(msg), &statuses))
	assert.Equal(t, uint64(2), statuses["office"].Cycles)
	assert.Equal(t, transport.ModeHTTPPull, statuses["office"].Mode)
}

func TestFailedCycleKeepsPreviousReport(t *testing.T) {
	t.Parallel()

	var body atomic.Value
	body.Store(`{"co_ppm": 1.5}`)

	_, puller := sensorServer(t, &body)

	clock := newFakeClock()
	registry := accessory.NewRegistry()

	cfg := &Config{Accessories: []AccessoryConfig{{
		Name:        "hall",
		APIEndpoint: "http://10.0.0.2",
		Timeout:     10,
		Features:    features(t, `{"co": true, "co_ppm": true}`),
	}}}

	svc, err := NewService(cfg, registry, logger.NewTestLogger(), WithClock(clock), WithPuller("hall", puller))
	require.NoError(t, err)

	ctx := context.Background()
	m, _ := svc.Monitor("hall")
	require.NoError(t, m.Binding().Register(ctx))
	require.NoError(t, m.Cycle(ctx))

	body.Store(`{not json`)
	clock.Advance(5 * time.Second)

	err = m.Cycle(ctx)
	require.ErrorIs(t, err, transport.ErrTransport)

	v, err := registry.Read("hall", accessory.CarbonMonoxideLevel)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 0)

	clock.Advance(6 * time.Second)

	_, err = registry.Read("hall", accessory.CarbonMonoxideLevel)
	require.ErrorIs(t, err, sensor.ErrTimedOut)

	st := m.Status()
	assert.False(t, st.Available)
	assert.Equal(t, uint64(1), st.Failures)
	assert.NotEmpty(t, st.LastError)
}

func TestConfigurationErrorEveryCycle(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	recorder := NewMockRecorder(ctrl)

	cfg := &Config{Accessories: []AccessoryConfig{{Name: "attic", APIEndpoint: "ftp://10.0.0.2:21"}}}

	svc, err := NewService(cfg, accessory.NewRegistry(), logger.NewTestLogger(),
		WithClock(newFakeClock()), WithRecorder(recorder))
	require.NoError(t, err)

	recorder.EXPECT().ObserveFetch("attic", metrics.ResultConfigError, gomock.Any()).Times(2)

	m, _ := svc.Monitor("attic")
	require.ErrorIs(t, m.Cycle(context.Background()), transport.ErrConfiguration)
	require.ErrorIs(t, m.Cycle(context.Background()), transport.ErrConfiguration)

	assert.Empty(t, m.Mode())
	assert.Equal(t, uint64(2), m.Status().Failures)
}

func TestUDPListenerMode(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	registry := accessory.NewRegistry()

	cfg := &Config{Accessories: []AccessoryConfig{{
		Name:        "bedroom",
		APIEndpoint: "udp://127.0.0.1:0",
		Features:    features(t, `{"air_quality": true, "pm10": true}`),
	}}}

	svc, err := NewService(cfg, registry, logger.NewTestLogger(), WithClock(clock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, _ := svc.Monitor("bedroom")
	require.NoError(t, m.Binding().Register(ctx))
	assert.Equal(t, transport.ModeUDPListener, m.Mode())

	// Nothing pushed yet: the listener binds but there is nothing fresh.
	require.ErrorIs(t, m.Cycle(ctx), sensor.ErrTimedOut)
	assert.Equal(t, uint64(0), m.Status().Failures)

	m.listenMu.Lock()
	addr := m.listener.Addr().String()
	m.listenMu.Unlock()

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte(`{"readings":{"pm10":"60"}}`))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return m.State().Snapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Cycle(ctx))

	v, err := registry.Read("bedroom", accessory.AirQuality)
	require.NoError(t, err)
	assert.Equal(t, int(sensor.AirQualityFromPM10(60)), v)

	last, ok := registry.LastUpdates("bedroom")
	require.True(t, ok)
	assert.InDelta(t, 60.0, last[accessory.PM10Density].Value, 0)
}

func TestHTTPListenerMode(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	registry := accessory.NewRegistry()

	cfg := &Config{Accessories: []AccessoryConfig{{
		Name:        "kitchen",
		APIEndpoint: "http://127.0.0.1:0",
		Features:    features(t, `{"air_quality": true, "pm10": true, "co": true, "co_ppm": true}`),
	}}}

	svc, err := NewService(cfg, registry, logger.NewTestLogger(), WithClock(clock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, _ := svc.Monitor("kitchen")
	require.NoError(t, m.Binding().Register(ctx))
	assert.Equal(t, transport.ModeHTTPListener, m.Mode())

	require.ErrorIs(t, m.Cycle(ctx), sensor.ErrTimedOut)

	m.listenMu.Lock()
	url := "http://" + m.listener.Addr().String() + "/"
	m.listenMu.Unlock()

	resp, err := http.Post(url, "application/json", strings.NewReader(`{"readings":{"pm10":"40","co_ppm":0}}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(url)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, m.Cycle(ctx))

	v, err := registry.Read("kitchen", accessory.AirQuality)
	require.NoError(t, err)
	assert.Equal(t, int(sensor.AirQualityGood), v)

	v, err = registry.Read("kitchen", accessory.CarbonMonoxideLevel)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 0)

	v, err = registry.Read("kitchen", accessory.CarbonMonoxideDetected)
	require.NoError(t, err)
	assert.Equal(t, accessory.LevelsNormal, v)

	v, err = registry.Read("kitchen", accessory.CarbonMonoxidePeakLevel)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 0)

	last, ok := registry.LastUpdates("kitchen")
	require.True(t, ok)
	assert.Contains(t, last, accessory.CarbonMonoxideLevel)

	assert.NotPanics(t, func() { m.onPush(sensor.Report{}, nil) })

	clock.Advance(31 * time.Second)

	_, err = registry.Read("kitchen", accessory.CarbonMonoxideLevel)
	require.ErrorIs(t, err, sensor.ErrTimedOut)
}

func TestServiceStartStop(t *testing.T) {
	t.Parallel()

	var body atomic.Value
	body.Store(`{"temperature": 19}`)

	_, puller := sensorServer(t, &body)

	clock := newFakeClock()
	registry := accessory.NewRegistry()

	cfg := &Config{Accessories: []AccessoryConfig{{Name: "porch", APIEndpoint: "http://10.0.0.2"}}}

	svc, err := NewService(cfg, registry, logger.NewTestLogger(), WithClock(clock), WithPuller("porch", puller))
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	require.ErrorIs(t, svc.Start(context.Background()), errServiceStarted)

	require.Eventually(t, func() bool {
		v, err := registry.Read("porch", accessory.CurrentTemperature)
		return err == nil && v == 19.0
	}, 2*time.Second, 10*time.Millisecond)

	clock.c <- clock.Now()

	require.Eventually(t, func() bool {
		return svc.Statuses()[0].Cycles >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop())

	_, ok := registry.Get("porch")
	assert.True(t, ok)
	assert.Equal(t, "porch", svc.Monitors()[0].Name())
}
