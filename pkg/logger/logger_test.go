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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "debug", Output: "stdout"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("airquality")

	assert.NotEqual(t, zerolog.Disabled, componentLogger.GetLevel())
}

func TestWrapAddsComponentAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := Wrap(zerolog.New(&buf)).
		WithComponent("airquality").
		WithFields(map[string]interface{}{"accessory": "Living Room"})

	log.Info().Msg("cycle complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "airquality", entry["component"])
	assert.Equal(t, "Living Room", entry["accessory"])
	assert.Equal(t, "cycle complete", entry["message"])
}

func TestSetLevelFiltersEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := Wrap(zerolog.New(&buf))
	log.SetLevel(zerolog.WarnLevel)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "x-token=abc, tenant = home ,broken")

	config := DefaultConfig()

	assert.Equal(t, "warn", config.Level)
	assert.Equal(t, "stdout", config.Output)
	assert.Equal(t, defaultServiceName, config.OTel.ServiceName)
	assert.Equal(t, map[string]string{"x-token": "abc", "tenant": "home"}, config.OTel.Headers)
}

func TestNewTestLoggerDiscards(t *testing.T) {
	t.Parallel()

	log := NewTestLogger()
	log.Error().Msg("nothing to see")

	assert.NotNil(t, log.WithComponent("x"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer

	n, err := NewMultiWriter(&a, &b).Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "line", a.String())
	assert.Equal(t, "line", b.String())

	_, err = NewMultiWriter(&a, failingWriter{}).Write([]byte("x"))
	assert.Error(t, err)
}
