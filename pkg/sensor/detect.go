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

// Detection is the outcome of classifying a gas reading.
type Detection int

const (
	// DetectionUnknown means neither a flag nor a concentration was reported.
	DetectionUnknown Detection = iota
	DetectionNormal
	DetectionAbnormal
)

// Concentrations strictly above these values are abnormal.
const (
	COThresholdPPM  = 2.0
	CO2ThresholdPPM = 1000.0
)

// Classify returns the detection state for one gas. An explicit flag always wins over the
// concentration threshold.
func Classify(flag *bool, ppm *float64, threshold float64) Detection {
	if flag != nil {
		if *flag {
			return DetectionAbnormal
		}

		return DetectionNormal
	}

	if ppm == nil {
		return DetectionUnknown
	}

	if *ppm > threshold {
		return DetectionAbnormal
	}

	return DetectionNormal
}

// CODetection classifies the carbon monoxide fields of r.
func (r *Report) CODetection() Detection {
	return Classify(r.CODetected, r.COPPM, COThresholdPPM)
}

// CO2Detection classifies the carbon dioxide fields of r.
func (r *Report) CO2Detection() Detection {
	return Classify(r.CO2Detected, r.CO2PPM, CO2ThresholdPPM)
}

// Abnormal reports the boolean value of d; ok is false for DetectionUnknown.
func (d Detection) Abnormal() (abnormal, ok bool) {
	switch d {
	case DetectionNormal:
		return false, true
	case DetectionAbnormal:
		return true, true
	case DetectionUnknown:
		return false, false
	default:
		return false, false
	}
}

func (d Detection) String() string {
	switch d {
	case DetectionNormal:
		return "normal"
	case DetectionAbnormal:
		return "abnormal"
	case DetectionUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}
