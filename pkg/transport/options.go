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
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/carverauto/airsensor/pkg/logger"
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	DefaultUDPTimeout  = 3 * time.Second
	// DefaultMaxPayload bounds HTTP bodies; UDP is bounded by the datagram size.
	DefaultMaxPayload = 64 << 10
	maxDatagramSize   = 64 << 10
)

// Options tune the fetchers built by New.
type Options struct {
	HTTPTimeout  time.Duration
	UDPTimeout   time.Duration
	MaxPayload   int64
	TrustedPeers []string
}

func (o Options) withDefaults() Options {
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = DefaultHTTPTimeout
	}

	if o.UDPTimeout <= 0 {
		o.UDPTimeout = DefaultUDPTimeout
	}

	if o.MaxPayload <= 0 {
		o.MaxPayload = DefaultMaxPayload
	}

	return o
}

// NewPuller builds the pull fetcher for a remote endpoint.
func NewPuller(ep Endpoint, opts Options, log logger.Logger) (Puller, error) {
	if ep.Passive() {
		return nil, fmt.Errorf("%w: %s", ErrPassive, ep)
	}

	opts = opts.withDefaults()

	if ep.Scheme == SchemeUDP {
		return NewUDPPuller(ep, opts.UDPTimeout, log), nil
	}

	return NewHTTPPuller(ep, opts.HTTPTimeout, opts.MaxPayload, log), nil
}

// NewListener builds the push listener for a local endpoint.
func NewListener(ctx context.Context, ep Endpoint, opts Options, log logger.Logger) (Listener, error) {
	if !ep.Passive() {
		return nil, fmt.Errorf("%w: %s", ErrNotPassive, ep)
	}

	opts = opts.withDefaults()

	peers, err := newPeerFilter(ctx, opts.TrustedPeers)
	if err != nil {
		return nil, err
	}

	if ep.Scheme == SchemeUDP {
		return NewUDPListener(ep, peers, log), nil
	}

	return NewHTTPListener(ep, peers, opts.MaxPayload, log), nil
}

// peerFilter accepts every sender when empty.
type peerFilter struct {
	ips []net.IP
}

func newPeerFilter(ctx context.Context, peers []string) (*peerFilter, error) {
	f := &peerFilter{}

	for _, peer := range peers {
		peer = strings.TrimSpace(peer)
		if peer == "" {
			continue
		}

		if ip := net.ParseIP(peer); ip != nil {
			f.ips = append(f.ips, ip)
			continue
		}

		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, peer)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted peer %q: %w", ErrConfiguration, peer, err)
		}

		for _, a := range addrs {
			f.ips = append(f.ips, a.IP)
		}
	}

	return f, nil
}

func (f *peerFilter) allows(ip net.IP) bool {
	if f == nil || len(f.ips) == 0 {
		return true
	}

	for _, trusted := range f.ips {
		if trusted.Equal(ip) {
			return true
		}
	}

	return false
}
