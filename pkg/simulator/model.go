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

// Package simulator fakes an air quality sensor: it answers HTTP GET and
// UDP pull requests and can push reports to a listener.
package simulator

import (
	"encoding/json"
	"math/rand/v2"
	"sync"

	"github.com/carverauto/airsensor/pkg/sensor"
)

type walk struct {
	value, step, lo, hi float64
}

func (w *walk) next(rng *rand.Rand) float64 {
	w.value += (rng.Float64()*2 - 1) * w.step

	switch {
	case w.value < w.lo:
		w.value = w.lo + (w.lo - w.value)
	case w.value > w.hi:
		w.value = w.hi - (w.value - w.hi)
	}

	return w.value
}

// Model is a random walk over every reading the sensor reports.
type Model struct {
	mu   sync.Mutex
	rng  *rand.Rand
	temp walk
	hum  walk
	pm10 walk
	pm25 walk
	voc  walk
	co   walk
	co2  walk

	envelope bool
	last     sensor.Report
}

// NewModel seeds the walk. With envelope set, readings are sent nested
// under "readings" the way some firmware does.
func NewModel(seed uint64, envelope bool) *Model {
	m := &Model{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		temp:     walk{value: 21, step: 0.2, lo: 10, hi: 35},
		hum:      walk{value: 45, step: 1, lo: 15, hi: 90},
		pm10:     walk{value: 20, step: 3, lo: 0, hi: 180},
		pm25:     walk{value: 10, step: 2, lo: 0, hi: 120},
		voc:      walk{value: 0.3, step: 0.05, lo: 0, hi: 5},
		co:       walk{value: 0.5, step: 0.3, lo: 0, hi: 10},
		co2:      walk{value: 600, step: 40, lo: 400, hi: 2500},
		envelope: envelope,
	}

	m.Step()

	return m
}

// Step advances every reading once and returns the new report.
func (m *Model) Step() sensor.Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = sensor.Report{
		Temperature: sensor.Float(round(m.temp.next(m.rng), 1)),
		Humidity:    sensor.Float(round(m.hum.next(m.rng), 0)),
		PM10:        sensor.Float(round(m.pm10.next(m.rng), 1)),
		PM2_5:       sensor.Float(round(m.pm25.next(m.rng), 1)),
		VOC:         sensor.Float(round(m.voc.next(m.rng), 2)),
		COPPM:       sensor.Float(round(m.co.next(m.rng), 1)),
		CO2PPM:      sensor.Float(round(m.co2.next(m.rng), 0)),
	}

	return m.last
}

// Current returns the last report without advancing.
func (m *Model) Current() sensor.Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last
}

// Payload encodes the current report, nested when the model uses an envelope.
func (m *Model) Payload() ([]byte, error) {
	r := m.Current()

	if !m.envelope {
		return json.Marshal(r)
	}

	readings := map[string]interface{}{}

	set := func(name string, v *float64) {
		if v != nil {
			readings[name] = *v
		}
	}

	set("temperature", r.Temperature)
	set("humidity", r.Humidity)
	set("pm10", r.PM10)
	set("pm2_5", r.PM2_5)
	set("voc_ppm", r.VOC)
	set("co_ppm", r.COPPM)
	set("co2_ppm", r.CO2PPM)

	return json.Marshal(map[string]interface{}{"readings": readings})
}

func round(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}

	return float64(int64(v*p+0.5)) / p
}
