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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAirQualityFromPM10(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pm10 float64
		want AirQuality
	}{
		{pm10: 0, want: AirQualityExcellent},
		{pm10: 25, want: AirQualityExcellent},
		{pm10: 25.01, want: AirQualityGood},
		{pm10: 50, want: AirQualityGood},
		{pm10: 75, want: AirQualityFair},
		{pm10: 75.5, want: AirQualityInferior},
		{pm10: 100, want: AirQualityInferior},
		{pm10: 100.01, want: AirQualityPoor},
		{pm10: 150, want: AirQualityPoor},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, AirQualityFromPM10(tc.pm10), "pm10=%v", tc.pm10)
	}
}

func TestAirQualityString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "excellent", AirQualityExcellent.String())
	assert.Equal(t, "poor", AirQualityPoor.String())
	assert.Equal(t, "invalid", AirQuality(9).String())
}
