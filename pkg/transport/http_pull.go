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
	"io"
	"net/http"
	"time"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
)

const errorBodyPreview = 100

// HTTPPuller GETs the endpoint URL and decodes the body as a report.
type HTTPPuller struct {
	endpoint   Endpoint
	client     *http.Client
	maxPayload int64
	logger     logger.Logger
}

func NewHTTPPuller(ep Endpoint, timeout time.Duration, maxPayload int64, log logger.Logger) *HTTPPuller {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	return &HTTPPuller{
		endpoint:   ep,
		client:     &http.Client{Timeout: timeout},
		maxPayload: maxPayload,
		logger:     log,
	}
}

func (p *HTTPPuller) Pull(ctx context.Context) (sensor.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint.Raw, http.NoBody)
	if err != nil {
		return sensor.Report{}, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return sensor.Report{}, fmt.Errorf("%w: GET %s: %w", ErrTransport, p.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxPayload))
	if err != nil {
		return sensor.Report{}, fmt.Errorf("%w: read %s: %w", ErrTransport, p.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := body
		if len(preview) > errorBodyPreview {
			preview = preview[:errorBodyPreview]
		}

		return sensor.Report{}, fmt.Errorf("%w: GET %s: status %d: %s", ErrTransport, p.endpoint, resp.StatusCode, preview)
	}

	report, err := sensor.DecodeReport(body)
	if err != nil {
		return sensor.Report{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	p.logger.Trace().Str("endpoint", p.endpoint.Raw).Int("bytes", len(body)).Msg("Fetched sensor report")

	return report, nil
}
