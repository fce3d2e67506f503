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
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
)

const readHeaderTimeout = 5 * time.Second

// HTTPListener accepts reports as POST or PUT JSON bodies on any path.
type HTTPListener struct {
	endpoint   Endpoint
	peers      *peerFilter
	maxPayload int64
	logger     logger.Logger

	mu      sync.Mutex
	server  *http.Server
	addr    net.Addr
	handler Handler
	closed  bool
}

func NewHTTPListener(ep Endpoint, peers *peerFilter, maxPayload int64, log logger.Logger) *HTTPListener {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	return &HTTPListener{endpoint: ep, peers: peers, maxPayload: maxPayload, logger: log}
}

func (l *HTTPListener) Listen(ctx context.Context, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrListenerClosed
	}

	if l.server != nil {
		return nil
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", l.endpoint.ListenAddress())
	if err != nil {
		return fmt.Errorf("%w: bind %s: %w", ErrTransport, l.endpoint.ListenAddress(), err)
	}

	l.handler = handler
	l.addr = ln.Addr()
	l.server = &http.Server{
		Handler:           l,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error().Err(err).Str("addr", ln.Addr().String()).Msg("HTTP listener stopped")
		}
	}(l.server)

	context.AfterFunc(ctx, func() { _ = l.Close() })

	l.logger.Info().Str("addr", l.addr.String()).Msg("HTTP push listener bound")

	return nil
}

func (l *HTTPListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !l.peers.allows(remoteIP(r.RemoteAddr)) {
		l.logger.Warn().Str("remote", r.RemoteAddr).Msg("Rejected push from untrusted peer")
		http.Error(w, "forbidden", http.StatusForbidden)

		return
	}

	if (r.Method != http.MethodPost && r.Method != http.MethodPut) || !isJSON(r.Header.Get("Content-Type")) {
		l.logger.Warn().
			Str("method", r.Method).
			Str("content_type", r.Header.Get("Content-Type")).
			Str("remote", r.RemoteAddr).
			Msg("bad request")
		http.Error(w, "bad request", http.StatusBadRequest)

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, l.maxPayload))
	if err != nil {
		l.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("bad request")
		http.Error(w, "bad request", http.StatusBadRequest)

		return
	}

	report, err := sensor.DecodeReport(body)
	if err != nil {
		l.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("bad request")
		http.Error(w, "bad request", http.StatusBadRequest)

		return
	}

	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()

	handler(report, tcpAddr(r.RemoteAddr))

	w.WriteHeader(http.StatusNoContent)
}

func (l *HTTPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.addr
}

func (l *HTTPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true

	if l.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), readHeaderTimeout)
	defer cancel()

	return l.server.Shutdown(ctx)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func remoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	return net.ParseIP(host)
}

// tcpAddr never returns nil; an unparsable RemoteAddr yields a zero TCPAddr
// carrying whatever IP could be recovered.
func tcpAddr(remoteAddr string) net.Addr {
	addr, err := net.ResolveTCPAddr("tcp", remoteAddr)
	if err != nil {
		return &net.TCPAddr{IP: remoteIP(remoteAddr)}
	}

	return addr
}
