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

package airquality

import (
	"errors"
)

var (
	errNoAccessories        = errors.New("at least one accessory is required")
	errAccessoryNameMissing = errors.New("accessory name is required")
	errDuplicateAccessory   = errors.New("duplicate accessory name")
	errNegativeTimeout      = errors.New("timeout must not be negative")
	errNegativeInterval     = errors.New("poll_interval must not be negative")
	errServiceStarted       = errors.New("service already started")
)
