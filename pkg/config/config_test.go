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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/models"
)

type nested struct {
	URL    string `json:"url" yaml:"url"`
	Stream string `json:"stream" yaml:"stream"`
}

type testConfig struct {
	ListenAddr   string          `json:"listen_addr" yaml:"listen_addr"`
	PollInterval models.Duration `json:"poll_interval" yaml:"poll_interval"`
	Debug        bool            `json:"debug" yaml:"debug"`
	Retries      int             `json:"retries" yaml:"retries"`
	Peers        []string        `json:"peers" yaml:"peers"`
	NATS         *nested         `json:"nats,omitempty" yaml:"nats,omitempty"`

	validated bool
}

var errMissingListenAddr = errors.New("listen_addr is required")

func (c *testConfig) Validate() error {
	c.validated = true

	if c.ListenAddr == "" {
		return errMissingListenAddr
	}

	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadJSONFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "airsensor.json", `{"listen_addr":":8090","poll_interval":"5s","peers":["10.0.0.1"]}`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.True(t, cfg.validated)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Peers)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "airsensor.yaml", "listen_addr: \":9000\"\npoll_interval: 2s\nnats:\n  url: nats://127.0.0.1:4222\n")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.PollInterval.Std())
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
}

func TestLoadValidationFailure(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "airsensor.json", `{"poll_interval":"5s"}`)

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errMissingListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg)
	require.Error(t, err)
	assert.False(t, cfg.validated)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testConfig
	err := NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvConfigJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "TESTAIR_")
	t.Setenv("TESTAIR_CONFIG_JSON", `{"listen_addr":":7000","retries":3}`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.Retries)
}

func TestEnvPerField(t *testing.T) {
	t.Setenv("AIRSENSOR_LISTEN_ADDR", ":8095")
	t.Setenv("AIRSENSOR_POLL_INTERVAL", "750ms")
	t.Setenv("AIRSENSOR_DEBUG", "true")
	t.Setenv("AIRSENSOR_PEERS", `["10.0.0.1","10.0.0.2"]`)
	t.Setenv("AIRSENSOR_NATS_URL", "nats://nats:4222")

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "AIRSENSOR_").Load(context.Background(), "", &cfg))

	assert.Equal(t, ":8095", cfg.ListenAddr)
	assert.Equal(t, 750*time.Millisecond, cfg.PollInterval.Std())
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Peers)
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
}

func TestEnvLeavesUnsetSectionsNil(t *testing.T) {
	t.Setenv("UNSETSECTION_LISTEN_ADDR", ":1")

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "UNSETSECTION_").Load(context.Background(), "", &cfg))

	assert.Nil(t, cfg.NATS)
}

func TestEnvRejectsBadValue(t *testing.T) {
	t.Setenv("BADVALUE_RETRIES", "many")

	var cfg testConfig
	err := NewEnvConfigLoader(logger.NewTestLogger(), "BADVALUE_").Load(context.Background(), "", &cfg)
	require.Error(t, err)
}

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func TestKVSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	c := NewConfig(nil)
	c.SetKVStore(mapStore{"config/airsensor.json": []byte("listen_addr: \":6000\"\n")})

	var cfg testConfig
	require.NoError(t, c.LoadAndValidate(context.Background(), "/etc/airsensor/airsensor.json", &cfg))
	assert.Equal(t, ":6000", cfg.ListenAddr)
}

func TestKVSourceFallsBackToFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	path := writeFile(t, "airsensor.json", `{"listen_addr":":6001"}`)

	c := NewConfig(nil)
	c.SetKVStore(mapStore{})

	var cfg testConfig
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, ":6001", cfg.ListenAddr)
}

func TestKVSourceRequiresStore(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg testConfig
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &cfg), errKVStoreNotSet)
}
