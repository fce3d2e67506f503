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
	"sync"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
)

// UDPListener treats every datagram it receives as one report.
type UDPListener struct {
	endpoint Endpoint
	peers    *peerFilter
	logger   logger.Logger

	mu     sync.Mutex
	conn   *net.UDPConn
	closed bool
}

func NewUDPListener(ep Endpoint, peers *peerFilter, log logger.Logger) *UDPListener {
	return &UDPListener{endpoint: ep, peers: peers, logger: log}
}

func (l *UDPListener) Listen(ctx context.Context, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrListenerClosed
	}

	if l.conn != nil {
		return nil
	}

	var lc net.ListenConfig

	pc, err := lc.ListenPacket(ctx, "udp", l.endpoint.ListenAddress())
	if err != nil {
		return fmt.Errorf("%w: bind %s: %w", ErrTransport, l.endpoint.ListenAddress(), err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return fmt.Errorf("%w: unexpected packet conn %T", ErrTransport, pc)
	}

	l.conn = conn

	go l.serve(conn, handler)

	context.AfterFunc(ctx, func() { _ = l.Close() })

	l.logger.Info().Str("addr", conn.LocalAddr().String()).Msg("UDP push listener bound")

	return nil
}

func (l *UDPListener) serve(conn *net.UDPConn, handler Handler) {
	buf := make([]byte, maxDatagramSize)

	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			l.logger.Warn().Err(err).Msg("UDP listener read failed")

			continue
		}

		if !l.peers.allows(from.IP) {
			l.logger.Warn().Str("remote", from.String()).Msg("Rejected push from untrusted peer")
			continue
		}

		report, err := sensor.DecodeReport(buf[:n])
		if err != nil {
			l.logger.Warn().Err(err).Str("remote", from.String()).Msg("bad request")
			continue
		}

		handler(report, from)
	}
}

func (l *UDPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}

	return l.conn.LocalAddr()
}

func (l *UDPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true

	if l.conn == nil {
		return nil
	}

	return l.conn.Close()
}
