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

package accessory

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
)

// Binding ties one accessory's features and state to a Host. Publish pushes
// every available value after a cycle; Read serves on-demand requests
// through the staleness gate.
type Binding struct {
	info     Info
	features Features
	state    *sensor.State
	gate     sensor.Gate
	host     Host
	logger   logger.Logger
}

func NewBinding(info Info, features Features, state *sensor.State, gate sensor.Gate, host Host, log logger.Logger) *Binding {
	return &Binding{
		info:     info,
		features: features,
		state:    state,
		gate:     gate,
		host:     host,
		logger:   log,
	}
}

func (b *Binding) Info() Info { return b.info }

func (b *Binding) Features() Features { return b.features }

func (b *Binding) Accessory() *Accessory {
	return &Accessory{
		Info:     b.info,
		Services: b.features.Services(),
		Reader:   b,
	}
}

// Register announces the accessory and its enabled services to the host.
func (b *Binding) Register(ctx context.Context) error {
	if err := b.host.Register(ctx, b.Accessory()); err != nil {
		return fmt.Errorf("register accessory %q: %w", b.info.Name, err)
	}

	b.logger.Info().
		Interface("characteristics", b.features.Characteristics()).
		Msg("Registered accessory")

	return nil
}

// Publish pushes the value of every enabled characteristic present in snap.
// Nothing is pushed for a stale snapshot. It returns the number of values
// the host accepted.
func (b *Binding) Publish(ctx context.Context, snap *sensor.Snapshot) (int, error) {
	if err := b.gate.Check(snap); err != nil {
		return 0, err
	}

	var (
		published int
		errs      []error
	)

	for _, c := range b.features.Characteristics() {
		value, err := Value(c, snap)
		if err != nil {
			continue
		}

		update := Update{
			Accessory:      b.info.Name,
			Characteristic: c,
			Value:          value,
			Timestamp:      snap.UpdatedAt,
		}

		if err := b.host.Update(ctx, update); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
			continue
		}

		published++
	}

	return published, errors.Join(errs...)
}

// Read returns the current value of c, or sensor.ErrTimedOut when the data
// is stale, or sensor.ErrDoesNotExist when the value is absent.
func (b *Binding) Read(c Characteristic) (interface{}, error) {
	if !b.features.Enabled(c) {
		return nil, errNotEnabled(c)
	}

	snap := b.state.Snapshot()
	if err := b.gate.Check(snap); err != nil {
		return nil, err
	}

	return Value(c, snap)
}

// ReadAll reads every enabled characteristic. Missing values are left out.
func (b *Binding) ReadAll() (map[Characteristic]interface{}, error) {
	snap := b.state.Snapshot()
	if err := b.gate.Check(snap); err != nil {
		return nil, err
	}

	out := make(map[Characteristic]interface{})

	for _, c := range b.features.Characteristics() {
		if v, err := Value(c, snap); err == nil {
			out[c] = v
		}
	}

	return out, nil
}
