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

//go:generate mockgen -destination=mock_transport.go -package=transport github.com/carverauto/airsensor/pkg/transport Puller,Listener

package transport

import (
	"context"
	"net"

	"github.com/carverauto/airsensor/pkg/sensor"
)

// Puller fetches one report per call from a remote source.
type Puller interface {
	Pull(ctx context.Context) (sensor.Report, error)
}

// Handler receives every report accepted by a Listener.
type Handler func(report sensor.Report, from net.Addr)

// Listener accepts pushed reports. Listen binds on first use only; later
// calls are no-ops, and a failed bind may be retried.
type Listener interface {
	Listen(ctx context.Context, handler Handler) error
	Addr() net.Addr
	Close() error
}
