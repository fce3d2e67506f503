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

// Package airquality polls air quality sensors, keeps their latest report
// and pushes the mapped characteristics to an accessory host.
package airquality

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/airsensor/pkg/accessory"
	srHttp "github.com/carverauto/airsensor/pkg/http"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/models"
	"github.com/carverauto/airsensor/pkg/mqttutil"
	"github.com/carverauto/airsensor/pkg/natsutil"
	"github.com/carverauto/airsensor/pkg/transport"
	"github.com/carverauto/airsensor/pkg/version"
)

const (
	defaultListenAddr   = ":8090"
	defaultPollInterval = 5 * time.Second
	defaultStaleTimeout = 30
	defaultManufacturer = "ACME Pty Ltd"
	defaultModel        = "Air Quality Sensor"
)

// serialNamespace seeds name-based serial numbers so they survive restarts.
var serialNamespace = uuid.MustParse("5e0a7f2c-3b8d-4c1e-9f6a-2d7b9c4e8a10")

// Config is the airquality checker configuration document.
type Config struct {
	ListenAddr   string            `json:"listen_addr" yaml:"listen_addr"`
	APIKey       string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	CORS         srHttp.CORSConfig `json:"cors,omitempty" yaml:"cors,omitempty"`
	PollInterval models.Duration   `json:"poll_interval" yaml:"poll_interval"`
	Logging      *logger.Config    `json:"logging,omitempty" yaml:"logging,omitempty"`
	NATS         *natsutil.Config  `json:"nats,omitempty" yaml:"nats,omitempty"`
	MQTT         *mqttutil.Config  `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
	Accessories  []AccessoryConfig `json:"accessories" yaml:"accessories"`
}

// AccessoryConfig describes one sensor and the accessory it is exposed as.
type AccessoryConfig struct {
	Name         string `json:"name" yaml:"name"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	APIEndpoint  string `json:"api_endpoint" yaml:"api_endpoint"`

	// Timeout is the staleness timeout in seconds. Fractions are allowed.
	Timeout float64 `json:"timeout" yaml:"timeout"`

	HTTPTimeout  models.Duration    `json:"http_timeout,omitempty" yaml:"http_timeout,omitempty"`
	UDPTimeout   models.Duration    `json:"udp_timeout,omitempty" yaml:"udp_timeout,omitempty"`
	MaxPayload   int64              `json:"max_payload,omitempty" yaml:"max_payload,omitempty"`
	TrustedPeers []string           `json:"trusted_peers,omitempty" yaml:"trusted_peers,omitempty"`
	Features     accessory.Features `json:"features" yaml:"features"`
}

// Validate checks the document and fills in defaults. An unusable
// api_endpoint is not an error here: the accessory still starts and
// reports the problem every cycle.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.PollInterval < 0 {
		return errNegativeInterval
	}

	if c.PollInterval == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.MQTT != nil {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if len(c.Accessories) == 0 {
		return errNoAccessories
	}

	seen := make(map[string]struct{}, len(c.Accessories))

	for i := range c.Accessories {
		acc := &c.Accessories[i]

		if acc.Name == "" {
			return fmt.Errorf("accessory %d: %w", i, errAccessoryNameMissing)
		}

		if _, ok := seen[acc.Name]; ok {
			return fmt.Errorf("%w: %s", errDuplicateAccessory, acc.Name)
		}

		seen[acc.Name] = struct{}{}

		if acc.Timeout < 0 {
			return fmt.Errorf("accessory %s: %w", acc.Name, errNegativeTimeout)
		}

		if acc.Timeout == 0 {
			acc.Timeout = defaultStaleTimeout
		}
	}

	return nil
}

// StaleTimeout is how long the last report stays readable.
func (a *AccessoryConfig) StaleTimeout() time.Duration {
	if a.Timeout <= 0 {
		return defaultStaleTimeout * time.Second
	}

	return time.Duration(a.Timeout * float64(time.Second))
}

// TransportOptions maps the accessory settings onto transport.Options.
func (a *AccessoryConfig) TransportOptions() transport.Options {
	return transport.Options{
		HTTPTimeout:  a.HTTPTimeout.Std(),
		UDPTimeout:   a.UDPTimeout.Std(),
		MaxPayload:   a.MaxPayload,
		TrustedPeers: a.TrustedPeers,
	}
}

// Info returns the accessory information service, defaulting what the
// config leaves empty.
func (a *AccessoryConfig) Info() accessory.Info {
	info := accessory.Info{
		Name:             a.Name,
		Manufacturer:     a.Manufacturer,
		Model:            a.Model,
		SerialNumber:     a.SerialNumber,
		FirmwareRevision: version.FirmwareRevision(),
	}

	if info.Manufacturer == "" {
		info.Manufacturer = defaultManufacturer
	}

	if info.Model == "" {
		info.Model = defaultModel
	}

	if info.SerialNumber == "" {
		info.SerialNumber = uuid.NewSHA1(serialNamespace, []byte(a.Name)).String()
	}

	return info
}
