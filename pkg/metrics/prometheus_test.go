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

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/carverauto/airsensor/pkg/accessory"
)

func TestObserveFetch(t *testing.T) {
	t.Parallel()

	m := New()

	m.ObserveFetch("office", ResultOK, 20*time.Millisecond)
	m.ObserveFetch("office", ResultOK, 30*time.Millisecond)
	m.ObserveFetch("office", ResultTransportError, time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.fetches.WithLabelValues("office", ResultOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fetches.WithLabelValues("office", ResultTransportError)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchDuration))
}

func TestPushesAndLastUpdate(t *testing.T) {
	t.Parallel()

	m := New()
	at := time.Unix(1_700_000_000, 500_000_000)

	m.ObservePush("garage")
	m.SetLastUpdate("garage", at)

	assert.InDelta(t, 1, testutil.ToFloat64(m.pushes.WithLabelValues("garage")), 0)
	assert.InDelta(t, 1_700_000_000.5, testutil.ToFloat64(m.lastUpdate.WithLabelValues("garage")), 0.001)
}

func TestMetricsAsHost(t *testing.T) {
	t.Parallel()

	m := New()
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, &accessory.Accessory{Info: accessory.Info{
		Name: "office", Manufacturer: "ACME Pty Ltd", Model: "Air Quality Sensor", FirmwareRevision: "1.2.3",
	}}))
	require.NoError(t, m.Update(ctx, accessory.Update{Accessory: "office", Characteristic: accessory.CarbonDioxideLevel}))
	require.NoError(t, m.Update(ctx, accessory.Update{Accessory: "office", Characteristic: accessory.CarbonDioxideLevel}))

	assert.InDelta(t, 2, testutil.ToFloat64(m.updates.WithLabelValues("office", "CarbonDioxideLevel")), 0)

	expected := `
# HELP airsensor_accessory_info Registered accessories.
# TYPE airsensor_accessory_info gauge
airsensor_accessory_info{accessory="office",firmware="1.2.3",manufacturer="ACME Pty Ltd",model="Air Quality Sensor"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.info, strings.NewReader(expected)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveFetch("office", ResultOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `airsensor_fetches_total{accessory="office",result="ok"} 1`)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)

	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			out[md.Name] = md.Data
		}
	}

	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "unexpected aggregation %T", data)

	want := attribute.NewSet(attrs...)

	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}

	return 0
}

func TestOTelInstruments(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m := New(WithMeterProvider(mp))
	ctx := context.Background()

	m.ObserveFetch("office", ResultOK, 20*time.Millisecond)
	m.ObserveFetch("office", ResultOK, 30*time.Millisecond)
	m.ObserveFetch("office", ResultStale, time.Millisecond)
	m.ObservePush("office")
	m.SetLastUpdate("office", time.Unix(1_700_000_000, 0))
	require.NoError(t, m.Update(ctx, accessory.Update{Accessory: "office", Characteristic: accessory.CarbonDioxideLevel}))

	data := collect(t, reader)

	office := attrAccessory.String("office")

	assert.Equal(t, int64(2), sumFor(t, data[instrumentFetches], office, attrResult.String(ResultOK)))
	assert.Equal(t, int64(1), sumFor(t, data[instrumentFetches], office, attrResult.String(ResultStale)))
	assert.Equal(t, int64(1), sumFor(t, data[instrumentPushes], office))
	assert.Equal(t, int64(1), sumFor(t, data[instrumentUpdates], office, attrCharacteristic.String("CarbonDioxideLevel")))

	hist, ok := data[instrumentFetchDuration].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)

	gauge, ok := data[instrumentLastUpdate].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 1_700_000_000.0, gauge.DataPoints[0].Value, 0.001)
}
