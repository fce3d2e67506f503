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

// Package transport fetches sensor reports over HTTP and UDP, either by
// polling a remote source or by listening for pushed reports.
package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

type Scheme string

const (
	SchemeHTTP Scheme = "http"
	SchemeUDP  Scheme = "udp"
)

// Mode is how reports for an endpoint are acquired.
type Mode string

const (
	ModeHTTPPull     Mode = "http-pull"
	ModeUDPPull      Mode = "udp-pull"
	ModeHTTPListener Mode = "http-listener"
	ModeUDPListener  Mode = "udp-listener"
)

const defaultHTTPPort = 80

// Endpoint is a parsed api_endpoint.
type Endpoint struct {
	Raw    string
	Scheme Scheme
	Host   string
	Port   int
}

// ParseEndpoint validates raw and returns its descriptor. Every failure
// wraps ErrConfiguration.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("%w: api_endpoint is not defined", ErrConfiguration)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: api_endpoint %q: %w", ErrConfiguration, raw, err)
	}

	ep := Endpoint{
		Raw:    raw,
		Scheme: Scheme(strings.ToLower(u.Scheme)),
		Host:   u.Hostname(),
	}

	switch ep.Scheme {
	case SchemeHTTP, SchemeUDP:
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported protocol %q in api_endpoint %q", ErrConfiguration, u.Scheme, raw)
	}

	switch port := u.Port(); {
	case port != "":
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return Endpoint{}, fmt.Errorf("%w: invalid port %q in api_endpoint %q", ErrConfiguration, port, raw)
		}

		ep.Port = n
	case ep.Scheme == SchemeHTTP:
		ep.Port = defaultHTTPPort
	default:
		return Endpoint{}, fmt.Errorf("%w: api_endpoint %q needs a port", ErrConfiguration, raw)
	}

	if !ep.Passive() && ep.Port == 0 {
		return Endpoint{}, fmt.Errorf("%w: api_endpoint %q cannot poll port 0", ErrConfiguration, raw)
	}

	return ep, nil
}

// Passive reports whether the host names this machine, in which case the
// endpoint is bound as a listener instead of polled.
func (e Endpoint) Passive() bool {
	switch e.Host {
	case "", "localhost", "0.0.0.0", "::":
		return true
	}

	ip := net.ParseIP(e.Host)

	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

func (e Endpoint) Mode() Mode {
	switch {
	case e.Scheme == SchemeUDP && e.Passive():
		return ModeUDPListener
	case e.Scheme == SchemeUDP:
		return ModeUDPPull
	case e.Passive():
		return ModeHTTPListener
	default:
		return ModeHTTPPull
	}
}

// Address is host:port of the remote source.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ListenAddress is the local bind address for a passive endpoint. A loopback
// literal is kept so the socket is private to the machine; any other local
// name binds every interface.
func (e Endpoint) ListenAddress() string {
	host := ""

	if ip := net.ParseIP(e.Host); ip != nil && ip.IsLoopback() {
		host = e.Host
	}

	return net.JoinHostPort(host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return e.Raw
}
