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

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
)

// UDPPuller sends an empty datagram from an ephemeral socket and waits for
// a single report back from the configured host. Datagrams from any other
// address are dropped.
type UDPPuller struct {
	endpoint Endpoint
	timeout  time.Duration
	logger   logger.Logger
}

func NewUDPPuller(ep Endpoint, timeout time.Duration, log logger.Logger) *UDPPuller {
	if timeout <= 0 {
		timeout = DefaultUDPTimeout
	}

	return &UDPPuller{endpoint: ep, timeout: timeout, logger: log}
}

func (p *UDPPuller) Pull(ctx context.Context) (sensor.Report, error) {
	var resolver net.Resolver

	addrs, err := resolver.LookupIPAddr(ctx, p.endpoint.Host)
	if err != nil {
		return sensor.Report{}, fmt.Errorf("%w: resolve %s: %w", ErrTransport, p.endpoint.Host, err)
	}

	if len(addrs) == 0 {
		return sensor.Report{}, fmt.Errorf("%w: %s has no addresses", ErrTransport, p.endpoint.Host)
	}

	remote := &net.UDPAddr{IP: addrs[0].IP, Port: p.endpoint.Port, Zone: addrs[0].Zone}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return sensor.Report{}, fmt.Errorf("%w: open socket: %w", ErrTransport, err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		return sensor.Report{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.WriteToUDP([]byte{}, remote); err != nil {
		return sensor.Report{}, fmt.Errorf("%w: send to %s: %w", ErrTransport, remote, err)
	}

	buf := make([]byte, maxDatagramSize)

	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return sensor.Report{}, p.readError(ctx, remote, err)
		}

		if !fromHost(from.IP, addrs) {
			p.logger.Debug().
				Str("endpoint", p.endpoint.Raw).
				Str("from", from.String()).
				Msg("Ignoring datagram from unexpected sender")

			continue
		}

		report, err := sensor.DecodeReport(buf[:n])
		if err != nil {
			return sensor.Report{}, fmt.Errorf("%w: %w", ErrTransport, err)
		}

		return report, nil
	}
}

func (p *UDPPuller) readError(ctx context.Context, remote *net.UDPAddr, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: waiting for %s: %w", ErrTransport, remote, ctxErr)
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: no reply from %s within %s", ErrTransport, remote, p.timeout)
	}

	return fmt.Errorf("%w: read from %s: %w", ErrTransport, remote, err)
}

func fromHost(ip net.IP, addrs []net.IPAddr) bool {
	for _, a := range addrs {
		if a.IP.Equal(ip) {
			return true
		}
	}

	return false
}
