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
	"github.com/carverauto/airsensor/pkg/sensor"
)

// Value extracts the value of c from snap. Absent readings and unknown gas
// detections return sensor.ErrDoesNotExist.
func Value(c Characteristic, snap *sensor.Snapshot) (interface{}, error) {
	if snap == nil {
		return nil, sensor.ErrTimedOut
	}

	r := &snap.Report

	switch c {
	case CurrentTemperature:
		return floatValue(r.Temperature)
	case CurrentRelativeHumidity:
		return floatValue(r.Humidity)
	case AirQuality:
		if r.AirQuality == nil {
			return nil, sensor.ErrDoesNotExist
		}

		return int(*r.AirQuality), nil
	case PM10Density:
		return floatValue(r.PM10)
	case PM2_5Density:
		return floatValue(r.PM2_5)
	case VOCDensity:
		return floatValue(r.VOC)
	case CarbonMonoxideDetected:
		return detectedValue(r.CODetection())
	case CarbonMonoxideLevel:
		return floatValue(r.COPPM)
	case CarbonMonoxidePeakLevel:
		return floatValue(snap.Peaks.CO)
	case CarbonDioxideDetected:
		return detectedValue(r.CO2Detection())
	case CarbonDioxideLevel:
		return floatValue(r.CO2PPM)
	case CarbonDioxidePeakLevel:
		return floatValue(snap.Peaks.CO2)
	default:
		return nil, ErrUnknownCharacteristic
	}
}

func floatValue(v *float64) (interface{}, error) {
	if v == nil {
		return nil, sensor.ErrDoesNotExist
	}

	return *v, nil
}

func detectedValue(d sensor.Detection) (interface{}, error) {
	abnormal, ok := d.Abnormal()
	if !ok {
		return nil, sensor.ErrDoesNotExist
	}

	if abnormal {
		return LevelsAbnormal, nil
	}

	return LevelsNormal, nil
}
