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

// Peaks holds the highest concentration ever seen per gas. Nil means nothing recorded yet.
type Peaks struct {
	CO  *float64 `json:"co_ppm_peak,omitempty"`
	CO2 *float64 `json:"co2_ppm_peak,omitempty"`
}

// Observe returns the peaks after seeing r. Peaks never decrease.
func (p Peaks) Observe(r *Report) Peaks {
	return Peaks{
		CO:  higher(p.CO, r.COPPM),
		CO2: higher(p.CO2, r.CO2PPM),
	}
}

func higher(peak, value *float64) *float64 {
	if value == nil {
		return peak
	}

	if peak == nil || *value > *peak {
		v := *value
		return &v
	}

	return peak
}
