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

package transport

import "errors"

var (
	// ErrConfiguration marks an endpoint that can never be fetched. The
	// accessory keeps running and reports it on every cycle.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport marks a failed fetch. It is scoped to one cycle.
	ErrTransport = errors.New("transport error")
	// ErrListenerClosed is returned by Listen after Close.
	ErrListenerClosed = errors.New("listener closed")
	// ErrNotPassive and ErrPassive reject constructing the wrong fetcher kind.
	ErrNotPassive = errors.New("endpoint is not a listener endpoint")
	ErrPassive    = errors.New("endpoint is a listener endpoint")
)
