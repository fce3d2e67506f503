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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "github.com/carverauto/airsensor/pkg/metrics"

	instrumentFetches       = "airsensor.fetches"
	instrumentFetchDuration = "airsensor.fetch.duration"
	instrumentPushes        = "airsensor.pushes"
	instrumentLastUpdate    = "airsensor.last_update"
	instrumentUpdates       = "airsensor.characteristic.updates"

	attrAccessory      = attribute.Key("accessory")
	attrResult         = attribute.Key("result")
	attrCharacteristic = attribute.Key("characteristic")
)

// instruments mirrors the Prometheus series on an OTel meter so the same
// measurements reach an OTLP collector when one is configured.
type instruments struct {
	fetches       metric.Int64Counter
	fetchDuration metric.Float64Histogram
	pushes        metric.Int64Counter
	lastUpdate    metric.Float64Gauge
	updates       metric.Int64Counter
}

// newInstruments falls back to no-op instruments when the meter refuses one.
func newInstruments(mp metric.MeterProvider) *instruments {
	inst, err := buildInstruments(mp.Meter(meterName))
	if err != nil {
		otel.Handle(err)

		inst, _ = buildInstruments(noop.NewMeterProvider().Meter(meterName))
	}

	return inst
}

func buildInstruments(meter metric.Meter) (*instruments, error) {
	var (
		inst instruments
		err  error
	)

	inst.fetches, err = meter.Int64Counter(instrumentFetches,
		metric.WithDescription("Fetch cycles by accessory and result"))
	if err != nil {
		return nil, err
	}

	inst.fetchDuration, err = meter.Float64Histogram(instrumentFetchDuration,
		metric.WithDescription("Duration of fetch cycles"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	inst.pushes, err = meter.Int64Counter(instrumentPushes,
		metric.WithDescription("Reports pushed by sensors to a listener"))
	if err != nil {
		return nil, err
	}

	inst.lastUpdate, err = meter.Float64Gauge(instrumentLastUpdate,
		metric.WithDescription("Unix time of the last accepted report"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	inst.updates, err = meter.Int64Counter(instrumentUpdates,
		metric.WithDescription("Characteristic values pushed to the accessory host"))
	if err != nil {
		return nil, err
	}

	return &inst, nil
}

func (i *instruments) observeFetch(accessoryName, result string, elapsed time.Duration) {
	ctx := context.Background()

	i.fetches.Add(ctx, 1, metric.WithAttributes(attrAccessory.String(accessoryName), attrResult.String(result)))
	i.fetchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrAccessory.String(accessoryName)))
}

func (i *instruments) observePush(accessoryName string) {
	i.pushes.Add(context.Background(), 1, metric.WithAttributes(attrAccessory.String(accessoryName)))
}

func (i *instruments) setLastUpdate(accessoryName string, unixSeconds float64) {
	i.lastUpdate.Record(context.Background(), unixSeconds, metric.WithAttributes(attrAccessory.String(accessoryName)))
}

func (i *instruments) update(ctx context.Context, accessoryName, characteristic string) {
	i.updates.Add(ctx, 1, metric.WithAttributes(
		attrAccessory.String(accessoryName),
		attrCharacteristic.String(characteristic),
	))
}
