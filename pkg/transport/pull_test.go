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
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
)

func httpEndpoint(t *testing.T, url string) Endpoint {
	t.Helper()

	ep, err := ParseEndpoint(url)
	require.NoError(t, err)

	return ep
}

func TestHTTPPullerDecodesReport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/readings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temperature":21.5,"readings":{"co2_ppm":450}}`))
	}))
	defer srv.Close()

	p := NewHTTPPuller(httpEndpoint(t, srv.URL+"/readings"), time.Second, 0, logger.NewTestLogger())

	report, err := p.Pull(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Temperature)
	assert.InDelta(t, 21.5, *report.Temperature, 1e-9)
	assert.Equal(t, map[string]interface{}{"co2_ppm": float64(450)}, report.Readings)
}

func TestHTTPPullerFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "not found", status: http.StatusNotFound, body: "{}"},
		{name: "malformed json", status: http.StatusOK, body: "{not json", malformed: true},
		{name: "array body", status: http.StatusOK, body: "[1,2]", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewHTTPPuller(httpEndpoint(t, srv.URL), time.Second, 0, logger.NewTestLogger())

			_, err := p.Pull(context.Background())
			require.ErrorIs(t, err, ErrTransport)
			assert.Equal(t, tt.malformed, errors.Is(err, sensor.ErrMalformedReport))
		})
	}
}

func TestHTTPPullerUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewHTTPPuller(httpEndpoint(t, url), time.Second, 0, logger.NewTestLogger())

	_, err := p.Pull(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func fakeUDPSensor(t *testing.T, reply []byte) *net.UDPConn {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 16)

		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}

			if n != 0 || reply == nil {
				continue
			}

			_, _ = conn.WriteToUDP(reply, from)
		}
	}()

	return conn
}

func loopbackUDP(conn *net.UDPConn) Endpoint {
	return Endpoint{
		Raw:    "udp://" + conn.LocalAddr().String(),
		Scheme: SchemeUDP,
		Host:   "127.0.0.1",
		Port:   conn.LocalAddr().(*net.UDPAddr).Port,
	}
}

func TestUDPPullerRoundTrip(t *testing.T) {
	t.Parallel()

	conn := fakeUDPSensor(t, []byte(`{"co_ppm":0,"co_detected":false}`))
	p := NewUDPPuller(loopbackUDP(conn), time.Second, logger.NewTestLogger())

	report, err := p.Pull(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.COPPM)
	assert.Zero(t, *report.COPPM)
	require.NotNil(t, report.CODetected)
	assert.False(t, *report.CODetected)
}

func TestUDPPullerIgnoresForeignSender(t *testing.T) {
	t.Parallel()

	decoy, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 2)})
	if err != nil {
		t.Skipf("127.0.0.2 not routable here: %v", err)
	}

	t.Cleanup(func() { _ = decoy.Close() })

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 16)

		_, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		_, _ = decoy.WriteToUDP([]byte(`{"co2_ppm":9999}`), from)

		time.Sleep(20 * time.Millisecond)

		_, _ = conn.WriteToUDP([]byte(`{"co2_ppm":450}`), from)
	}()

	p := NewUDPPuller(loopbackUDP(conn), time.Second, logger.NewTestLogger())

	report, err := p.Pull(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.CO2PPM)
	assert.InDelta(t, 450.0, *report.CO2PPM, 1e-9)
}

func TestUDPPullerTimesOut(t *testing.T) {
	t.Parallel()

	conn := fakeUDPSensor(t, nil)
	p := NewUDPPuller(loopbackUDP(conn), 100*time.Millisecond, logger.NewTestLogger())

	start := time.Now()
	_, err := p.Pull(context.Background())

	require.ErrorIs(t, err, ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUDPPullerHonorsContext(t *testing.T) {
	t.Parallel()

	conn := fakeUDPSensor(t, nil)
	p := NewUDPPuller(loopbackUDP(conn), 10*time.Second, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Pull(ctx)

	require.ErrorIs(t, err, ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUDPPullerMalformedReply(t *testing.T) {
	t.Parallel()

	conn := fakeUDPSensor(t, []byte(`nope`))
	p := NewUDPPuller(loopbackUDP(conn), time.Second, logger.NewTestLogger())

	_, err := p.Pull(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, sensor.ErrMalformedReport)
}

func TestFromHost(t *testing.T) {
	t.Parallel()

	addrs := []net.IPAddr{{IP: net.ParseIP("192.168.1.20")}}

	assert.True(t, fromHost(net.ParseIP("::ffff:192.168.1.20"), addrs))
	assert.False(t, fromHost(net.ParseIP("192.168.1.21"), addrs))
}
