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
	"errors"
	"fmt"

	"github.com/carverauto/airsensor/pkg/sensor"
)

var (
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
	ErrAccessoryNotFound     = errors.New("accessory not found")
	ErrDuplicateAccessory    = errors.New("accessory already registered")
)

// errNotEnabled keeps the host-facing "does not exist" status for reads of
// characteristics the accessory never registered.
func errNotEnabled(c Characteristic) error {
	return fmt.Errorf("%w: %s is not enabled", sensor.ErrDoesNotExist, c)
}
