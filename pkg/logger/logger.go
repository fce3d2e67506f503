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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

var (
	globalMu     sync.RWMutex
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// New builds a Logger from config. When OTel export is enabled the JSON
// stream is teed into the OTLP log pipeline.
func New(ctx context.Context, config *Config) (Logger, error) {
	zl, err := build(ctx, config)
	if err != nil {
		return nil, err
	}

	return Wrap(zl), nil
}

// Init replaces the process-wide logger used by GetLogger.
func Init(ctx context.Context, config *Config) error {
	zl, err := build(ctx, config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalLogger = zl
	log.Logger = zl
	globalMu.Unlock()

	return nil
}

func build(ctx context.Context, config *Config) (zerolog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		parsed, err := zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}

		level = parsed
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	if config.OTel.Enabled {
		otelWriter, err := NewOTELWriter(ctx, config.OTel)
		if err != nil {
			return zerolog.Logger{}, err
		}

		output = NewMultiWriter(output, otelWriter)
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return globalLogger
}

func SetLevel(level zerolog.Level) {
	globalMu.Lock()
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
	globalMu.Unlock()
}

func SetDebug(debug bool) {
	if debug {
		SetLevel(zerolog.DebugLevel)
	} else {
		SetLevel(zerolog.InfoLevel)
	}
}

func WithComponent(component string) zerolog.Logger {
	zl := GetLogger()

	return zl.With().Str("component", component).Logger()
}

// Shutdown flushes the OTel log and trace pipelines.
func Shutdown() error {
	return ShutdownOTEL()
}
