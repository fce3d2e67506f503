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

// Package sensor holds the sensor report model and the pure processing steps applied to every
// reading: envelope flattening, air quality derivation, gas classification and peak tracking.
package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const readingsKey = "readings"

// Report is one snapshot of the values a sensor source knows about. A nil field means the
// source does not measure it; a present zero is a real reading.
type Report struct {
	Temperature *float64    `json:"temperature,omitempty"`
	Humidity    *float64    `json:"humidity,omitempty"`
	AirQuality  *AirQuality `json:"air_quality,omitempty"`
	PM10        *float64    `json:"pm10,omitempty"`
	PM2_5       *float64    `json:"pm2_5,omitempty"`
	VOC         *float64    `json:"voc_ppm,omitempty"`
	CODetected  *bool       `json:"co_detected,omitempty"`
	COPPM       *float64    `json:"co_ppm,omitempty"`
	CO2Detected *bool       `json:"co2_detected,omitempty"`
	CO2PPM      *float64    `json:"co2_ppm,omitempty"`

	// Readings is the optional nested envelope. Normalize folds it into the fields above.
	Readings map[string]interface{} `json:"readings,omitempty"`

	// Rejected lists values that were dropped because they fall outside their domain. The
	// rest of the report is still usable.
	Rejected []string `json:"-"`
}

// DecodeReport parses a JSON document into a Report.
func DecodeReport(data []byte) (Report, error) {
	var r Report

	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	return r, nil
}

// UnmarshalJSON accepts numbers, numeric strings and booleans for every field so that
// firmware sending "21.5" instead of 21.5 still decodes.
func (r *Report) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == nil {
		return fmt.Errorf("%w: empty document", ErrMalformedReport)
	}

	var out Report

	for key, value := range raw {
		if key == readingsKey {
			if value == nil {
				continue
			}

			readings, ok := value.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%w: readings must be an object, got %T", ErrMalformedReport, value)
			}

			out.Readings = readings

			continue
		}

		if err := out.Set(key, value); err != nil {
			return err
		}
	}

	*r = out

	return nil
}

// Set assigns a named field from a loosely typed value. Unknown names are ignored and a nil
// value leaves the field untouched.
func (r *Report) Set(name string, value interface{}) error {
	if value == nil {
		return nil
	}

	switch name {
	case "temperature":
		return setNumber(&r.Temperature, name, value)
	case "humidity":
		return setNumber(&r.Humidity, name, value)
	case "air_quality":
		return r.setAirQuality(value)
	case "pm10":
		return setNumber(&r.PM10, name, value)
	case "pm2_5":
		return setNumber(&r.PM2_5, name, value)
	case "voc_ppm":
		return setNumber(&r.VOC, name, value)
	case "co_detected":
		return setBool(&r.CODetected, name, value)
	case "co_ppm":
		return setNumber(&r.COPPM, name, value)
	case "co2_detected":
		return setBool(&r.CO2Detected, name, value)
	case "co2_ppm":
		return setNumber(&r.CO2PPM, name, value)
	}

	return nil
}

func (r *Report) setAirQuality(value interface{}) error {
	n, err := toNumber("air_quality", value)
	if err != nil {
		return err
	}

	if n != math.Trunc(n) || n < float64(AirQualityUnknown) || n > float64(AirQualityPoor) {
		r.AirQuality = nil
		r.Rejected = append(r.Rejected, fmt.Sprintf("air_quality=%v", n))

		return nil
	}

	// 0 is the "unknown" category; treat it as not measured so PM10 derivation can apply.
	if AirQuality(n) == AirQualityUnknown {
		r.AirQuality = nil
		return nil
	}

	category := AirQuality(n)
	r.AirQuality = &category

	return nil
}

func setNumber(dst **float64, name string, value interface{}) error {
	n, err := toNumber(name, value)
	if err != nil {
		return err
	}

	*dst = &n

	return nil
}

func setBool(dst **bool, name string, value interface{}) error {
	var b bool

	switch v := value.(type) {
	case bool:
		b = v
	case float64:
		b = v != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedReport, name, err)
		}

		b = parsed
	default:
		return fmt.Errorf("%w: %s has unsupported type %T", ErrMalformedReport, name, value)
	}

	*dst = &b

	return nil
}

func toNumber(name string, value interface{}) (float64, error) {
	var n float64

	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrMalformedReport, name, err)
		}

		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrMalformedReport, name, err)
		}

		n = f
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", ErrMalformedReport, name, value)
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrMalformedReport, name)
	}

	return n, nil
}

// NormalizeOptions controls the derivations Normalize may apply.
type NormalizeOptions struct {
	// DeriveAirQuality enables the PM10 based category when the source sends none.
	DeriveAirQuality bool
}

// Normalize flattens the readings envelope into the top-level fields, overwriting any value
// already there, and derives the air quality category from PM10 when allowed. The input is
// not modified.
func Normalize(r Report, opts NormalizeOptions) (Report, error) {
	out := r
	out.Readings = nil
	out.Rejected = slices.Clone(r.Rejected)

	for name, value := range r.Readings {
		if err := out.Set(name, value); err != nil {
			return Report{}, err
		}
	}

	if out.AirQuality == nil && out.PM10 != nil && opts.DeriveAirQuality {
		category := AirQualityFromPM10(*out.PM10)
		out.AirQuality = &category
	}

	return out, nil
}

// Float returns a pointer to v. Handy when building reports in code.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
