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
	"fmt"
	"sync"
)

// Registry is the in-process Host backing the status API. It keeps the
// registered accessories and the last value pushed per characteristic.
type Registry struct {
	mu          sync.RWMutex
	order       []string
	accessories map[string]*Accessory
	last        map[string]map[Characteristic]Update
}

func NewRegistry() *Registry {
	return &Registry{
		accessories: make(map[string]*Accessory),
		last:        make(map[string]map[Characteristic]Update),
	}
}

func (r *Registry) Register(_ context.Context, acc *Accessory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := acc.Info.Name
	if _, ok := r.accessories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateAccessory, name)
	}

	r.accessories[name] = acc
	r.last[name] = make(map[Characteristic]Update)
	r.order = append(r.order, name)

	return nil
}

func (r *Registry) Update(_ context.Context, update Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[update.Accessory]
	if !ok {
		return fmt.Errorf("%w: %q", ErrAccessoryNotFound, update.Accessory)
	}

	last[update.Characteristic] = update

	return nil
}

// Get returns the accessory registered under name.
func (r *Registry) Get(name string) (*Accessory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accessories[name]

	return acc, ok
}

// List returns accessories in registration order.
func (r *Registry) List() []*Accessory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Accessory, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.accessories[name])
	}

	return out
}

// Read performs an on-demand read through the accessory's Reader.
func (r *Registry) Read(name string, c Characteristic) (interface{}, error) {
	acc, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAccessoryNotFound, name)
	}

	return acc.Reader.Read(c)
}

// LastUpdates returns a copy of the last pushed value per characteristic.
func (r *Registry) LastUpdates(name string) (map[Characteristic]Update, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	last, ok := r.last[name]
	if !ok {
		return nil, false
	}

	out := make(map[Characteristic]Update, len(last))
	for c, u := range last {
		out[c] = u
	}

	return out, true
}
