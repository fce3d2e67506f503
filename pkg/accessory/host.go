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

//go:generate mockgen -destination=mock_host.go -package=accessory github.com/carverauto/airsensor/pkg/accessory Host

package accessory

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Info is the accessory information service.
type Info struct {
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	SerialNumber     string `json:"serial_number"`
	FirmwareRevision string `json:"firmware_revision"`
}

type Service struct {
	Type            ServiceType      `json:"type"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Reader answers on-demand characteristic reads.
type Reader interface {
	Read(c Characteristic) (interface{}, error)
	ReadAll() (map[Characteristic]interface{}, error)
}

// Accessory is what a Host registers: its identity, its services and a
// Reader for pull requests.
type Accessory struct {
	Info     Info      `json:"info"`
	Services []Service `json:"services"`
	Reader   Reader    `json:"-"`
}

// Update is one pushed characteristic value.
type Update struct {
	Accessory      string         `json:"accessory"`
	Characteristic Characteristic `json:"characteristic"`
	Value          interface{}    `json:"value"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Host is an accessory host: anything that accepts registrations and
// characteristic pushes.
type Host interface {
	Register(ctx context.Context, acc *Accessory) error
	Update(ctx context.Context, update Update) error
}

// MultiHost fans every call out to all hosts. A failing host does not stop
// the others; the errors are joined.
type MultiHost []Host

func (m MultiHost) Register(ctx context.Context, acc *Accessory) error {
	var errs []error

	for _, h := range m {
		errs = append(errs, h.Register(ctx, acc))
	}

	return errors.Join(errs...)
}

func (m MultiHost) Update(ctx context.Context, update Update) error {
	var errs []error

	for _, h := range m {
		errs = append(errs, h.Update(ctx, update))
	}

	return errors.Join(errs...)
}

// Slug turns an accessory name into a lowercase token safe for NATS
// subjects and MQTT topics.
func Slug(name string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	if b.Len() == 0 {
		return "_"
	}

	return b.String()
}
