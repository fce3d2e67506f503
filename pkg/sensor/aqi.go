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

package sensor

// AirQuality is the five level ordinal scale HomeKit uses, 1 being the best.
type AirQuality int

const (
	AirQualityUnknown AirQuality = iota
	AirQualityExcellent
	AirQualityGood
	AirQualityFair
	AirQualityInferior
	AirQualityPoor
)

// PM10 breakpoints in µg/m³, CAQI style.
const (
	pm10Excellent = 25
	pm10Good      = 50
	pm10Fair      = 75
	pm10Inferior  = 100
)

// AirQualityFromPM10 maps a PM10 concentration onto the five level scale.
func AirQualityFromPM10(pm10 float64) AirQuality {
	switch {
	case pm10 <= pm10Excellent:
		return AirQualityExcellent
	case pm10 <= pm10Good:
		return AirQualityGood
	case pm10 <= pm10Fair:
		return AirQualityFair
	case pm10 <= pm10Inferior:
		return AirQualityInferior
	default:
		return AirQualityPoor
	}
}

func (a AirQuality) String() string {
	switch a {
	case AirQualityUnknown:
		return "unknown"
	case AirQualityExcellent:
		return "excellent"
	case AirQualityGood:
		return "good"
	case AirQualityFair:
		return "fair"
	case AirQualityInferior:
		return "inferior"
	case AirQualityPoor:
		return "poor"
	default:
		return "invalid"
	}
}
