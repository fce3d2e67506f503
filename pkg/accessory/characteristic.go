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

// Package accessory maps normalized sensor reports onto smart-home accessory
// characteristics and publishes them to one or more accessory hosts.
package accessory

import "strings"

// Characteristic names follow the HomeKit Accessory Protocol.
type Characteristic string

const (
	CurrentTemperature      Characteristic = "CurrentTemperature"
	CurrentRelativeHumidity Characteristic = "CurrentRelativeHumidity"
	AirQuality              Characteristic = "AirQuality"
	PM10Density             Characteristic = "PM10Density"
	PM2_5Density            Characteristic = "PM2_5Density"
	VOCDensity              Characteristic = "VOCDensity"
	CarbonMonoxideDetected  Characteristic = "CarbonMonoxideDetected"
	CarbonMonoxideLevel     Characteristic = "CarbonMonoxideLevel"
	CarbonMonoxidePeakLevel Characteristic = "CarbonMonoxidePeakLevel"
	CarbonDioxideDetected   Characteristic = "CarbonDioxideDetected"
	CarbonDioxideLevel      Characteristic = "CarbonDioxideLevel"
	CarbonDioxidePeakLevel  Characteristic = "CarbonDioxidePeakLevel"
)

// AllCharacteristics lists every characteristic in registration order.
var AllCharacteristics = []Characteristic{
	CurrentTemperature,
	CurrentRelativeHumidity,
	AirQuality,
	PM10Density,
	PM2_5Density,
	VOCDensity,
	CarbonMonoxideDetected,
	CarbonMonoxideLevel,
	CarbonMonoxidePeakLevel,
	CarbonDioxideDetected,
	CarbonDioxideLevel,
	CarbonDioxidePeakLevel,
}

// ParseCharacteristic matches a name case-insensitively.
func ParseCharacteristic(name string) (Characteristic, bool) {
	for _, c := range AllCharacteristics {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}

	return "", false
}

// ServiceType is the accessory service a characteristic belongs to.
type ServiceType string

const (
	TemperatureSensor    ServiceType = "TemperatureSensor"
	HumiditySensor       ServiceType = "HumiditySensor"
	AirQualitySensor     ServiceType = "AirQualitySensor"
	CarbonMonoxideSensor ServiceType = "CarbonMonoxideSensor"
	CarbonDioxideSensor  ServiceType = "CarbonDioxideSensor"
)

// Service returns the owning service type.
func (c Characteristic) Service() ServiceType {
	switch c {
	case CurrentTemperature:
		return TemperatureSensor
	case CurrentRelativeHumidity:
		return HumiditySensor
	case CarbonMonoxideDetected, CarbonMonoxideLevel, CarbonMonoxidePeakLevel:
		return CarbonMonoxideSensor
	case CarbonDioxideDetected, CarbonDioxideLevel, CarbonDioxidePeakLevel:
		return CarbonDioxideSensor
	default:
		return AirQualitySensor
	}
}

// Detected characteristic values.
const (
	LevelsNormal   = 0
	LevelsAbnormal = 1
)
