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

package accessory

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Features selects which characteristics an accessory exposes. Temperature
// and humidity are on unless explicitly disabled; everything else is off
// unless explicitly enabled. "aqi" is accepted as an alias of "air_quality".
type Features struct {
	Temperature *bool `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Humidity    *bool `json:"humidity,omitempty" yaml:"humidity,omitempty"`
	AirQuality  *bool `json:"air_quality,omitempty" yaml:"air_quality,omitempty"`
	VOC         *bool `json:"voc,omitempty" yaml:"voc,omitempty"`
	PM10        *bool `json:"pm10,omitempty" yaml:"pm10,omitempty"`
	PM2_5       *bool `json:"pm2_5,omitempty" yaml:"pm2_5,omitempty"`
	CO          *bool `json:"co,omitempty" yaml:"co,omitempty"`
	COPPM       *bool `json:"co_ppm,omitempty" yaml:"co_ppm,omitempty"`
	CO2         *bool `json:"co2,omitempty" yaml:"co2,omitempty"`
	CO2PPM      *bool `json:"co2_ppm,omitempty" yaml:"co2_ppm,omitempty"`
}

func (f *Features) UnmarshalJSON(data []byte) error {
	var raw map[string]*bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.apply(raw)

	return nil
}

func (f *Features) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]*bool
	if err := node.Decode(&raw); err != nil {
		return err
	}

	f.apply(raw)

	return nil
}

func (f *Features) apply(raw map[string]*bool) {
	fields := map[string]**bool{
		"temperature": &f.Temperature,
		"humidity":    &f.Humidity,
		"air_quality": &f.AirQuality,
		"voc":         &f.VOC,
		"pm10":        &f.PM10,
		"pm2_5":       &f.PM2_5,
		"co":          &f.CO,
		"co_ppm":      &f.COPPM,
		"co2":         &f.CO2,
		"co2_ppm":     &f.CO2PPM,
	}

	for key, value := range raw {
		if dst, ok := fields[key]; ok && value != nil {
			*dst = value
		}
	}

	if alias := raw["aqi"]; alias != nil && raw["air_quality"] == nil {
		f.AirQuality = alias
	}
}

func optOut(v *bool) bool { return v == nil || *v }

func optIn(v *bool) bool { return v != nil && *v }

// Enabled reports whether c is exposed under these features.
func (f Features) Enabled(c Characteristic) bool {
	switch c {
	case CurrentTemperature:
		return optOut(f.Temperature)
	case CurrentRelativeHumidity:
		return optOut(f.Humidity)
	case AirQuality:
		return optIn(f.AirQuality)
	case PM10Density:
		return optIn(f.AirQuality) && optIn(f.PM10)
	case PM2_5Density:
		return optIn(f.AirQuality) && optIn(f.PM2_5)
	case VOCDensity:
		return optIn(f.AirQuality) && optIn(f.VOC)
	case CarbonMonoxideDetected:
		return optIn(f.CO)
	case CarbonMonoxideLevel, CarbonMonoxidePeakLevel:
		return optIn(f.COPPM)
	case CarbonDioxideDetected:
		return optIn(f.CO2)
	case CarbonDioxideLevel, CarbonDioxidePeakLevel:
		return optIn(f.CO2PPM)
	default:
		return false
	}
}

// DerivesAirQuality reports whether the PM10 based category may be computed.
func (f Features) DerivesAirQuality() bool {
	return optIn(f.PM10)
}

// Characteristics returns the enabled characteristics in registration order.
func (f Features) Characteristics() []Characteristic {
	out := make([]Characteristic, 0, len(AllCharacteristics))

	for _, c := range AllCharacteristics {
		if f.Enabled(c) {
			out = append(out, c)
		}
	}

	return out
}

// Services groups the enabled characteristics by service, in registration order.
func (f Features) Services() []Service {
	var services []Service

	index := make(map[ServiceType]int)

	for _, c := range f.Characteristics() {
		st := c.Service()

		i, ok := index[st]
		if !ok {
			i = len(services)
			index[st] = i
			services = append(services, Service{Type: st})
		}

		services[i].Characteristics = append(services[i].Characteristics, c)
	}

	return services
}
