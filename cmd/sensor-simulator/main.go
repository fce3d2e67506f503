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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/carverauto/airsensor/pkg/config"
	"github.com/carverauto/airsensor/pkg/lifecycle"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/simulator"
	"github.com/carverauto/airsensor/pkg/version"
)

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Fatal error")
	}
}

func run() error {
	configPath := flag.String("config", "/etc/airsensor/simulator.json", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	_ = godotenv.Load()

	ctx := context.Background()

	simLog, err := lifecycle.CreateComponentLogger(ctx, "sensor-simulator", logger.DefaultConfig())
	if err != nil {
		return err
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	var cfg simulator.Config

	if err := config.NewConfig(simLog).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	sim, err := simulator.New(&cfg, simLog)
	if err != nil {
		return err
	}

	return lifecycle.RunService(ctx, &lifecycle.ServerOptions{
		ServiceName: "sensor-simulator",
		Service:     sim,
		Logger:      simLog,
	})
}
