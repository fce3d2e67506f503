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

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/carverauto/airsensor/pkg/logger"
)

var errKVKeyNotFound = errors.New("key not found in KV store")

// KVStore is the read side of a key-value bucket holding config documents.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
}

// KVConfigLoader reads the document stored under config/<file name of path>.
// JSON documents are recognized by a leading '{'; anything else is YAML.
type KVConfigLoader struct {
	store  KVStore
	logger logger.Logger
}

func NewKVConfigLoader(store KVStore, log logger.Logger) *KVConfigLoader {
	return &KVConfigLoader{store: store, logger: log}
}

// KeyFor returns the bucket key used for a config path.
func KeyFor(path string) string {
	return "config/" + filepath.Base(path)
}

func (k *KVConfigLoader) Load(ctx context.Context, path string, dst interface{}) error {
	key := KeyFor(path)

	data, found, err := k.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get key '%s' from KV store: %w", key, err)
	}

	if !found {
		return fmt.Errorf("%w: '%s'", errKVKeyNotFound, key)
	}

	ext := ".yaml"
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		ext = ".json"
	}

	if err := decode(ext, data, dst); err != nil {
		return fmt.Errorf("failed to parse key '%s': %w", key, err)
	}

	k.logger.Info().Str("key", key).Msg("Loaded configuration from KV store")

	return nil
}
