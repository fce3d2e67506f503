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
	"errors"
)

var (
	// ErrMalformedReport is returned when a payload cannot be decoded into a Report.
	ErrMalformedReport = errors.New("malformed sensor report")
	// ErrTimedOut is returned by reads once the last update is older than the staleness timeout.
	ErrTimedOut = errors.New("operation timed out")
	// ErrDoesNotExist is returned by reads for fields the current report does not carry.
	ErrDoesNotExist = errors.New("resource does not exist")
)

// HAP status codes surfaced to accessory hosts.
const (
	StatusSuccess              = 0
	StatusOperationTimedOut    = -70408
	StatusResourceDoesNotExist = -70409
)

// Status maps a read error onto the HAP status code a host expects.
func Status(err error) int {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrTimedOut):
		return StatusOperationTimedOut
	default:
		return StatusResourceDoesNotExist
	}
}
