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
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/api"
	"github.com/carverauto/airsensor/pkg/checker/airquality"
	"github.com/carverauto/airsensor/pkg/config"
	"github.com/carverauto/airsensor/pkg/config/kvnats"
	"github.com/carverauto/airsensor/pkg/lifecycle"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/metrics"
	"github.com/carverauto/airsensor/pkg/mqttutil"
	"github.com/carverauto/airsensor/pkg/natsutil"
	"github.com/carverauto/airsensor/pkg/version"
)

const defaultKVBucket = "airsensor-config"

var (
	errFailedToLoadConfig = errors.New("failed to load config")
	errKVAddressRequired  = errors.New("KV_ADDRESS is required when CONFIG_SOURCE=kv")
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Fatal error")
	}
}

func run() error {
	configPath := flag.String("config", "/etc/airsensor/airquality.json", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	ctx := context.Background()

	bootLog, err := lifecycle.CreateComponentLogger(ctx, "config", logger.DefaultConfig())
	if err != nil {
		return err
	}

	cfgLoader := config.NewConfig(bootLog)

	if strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "kv") {
		kv, err := connectKV(ctx)
		if err != nil {
			return err
		}

		defer func() { _ = kv.Close() }()

		cfgLoader.SetKVStore(kv)
	}

	var cfg airquality.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logger.DefaultConfig()
	}

	svcLog, err := lifecycle.CreateComponentLogger(ctx, "airquality", logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	if _, err := logger.InitializeTracing(ctx, logCfg.OTel, svcLog); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	metricsCfg := logger.MetricsConfig{ServiceName: "airquality-checker", OTel: &logCfg.OTel}

	if _, err := logger.InitializeMetrics(ctx, metricsCfg); err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	svcLog.Info().Str("version", version.GetFullVersion()).Msg("Starting airquality checker")

	registry := accessory.NewRegistry()
	promMetrics := metrics.New()
	hub := api.NewHub(originChecker(cfg.CORS.AllowedOrigins), svcLog.WithComponent("stream"))

	hosts := accessory.MultiHost{registry, hub, promMetrics}

	if cfg.NATS != nil {
		pub, nc, err := natsutil.Connect(ctx, *cfg.NATS, svcLog.WithComponent("nats"))
		if err != nil {
			return err
		}

		defer nc.Close()

		hosts = append(hosts, pub)
	}

	if cfg.MQTT != nil {
		pub, err := mqttutil.Connect(ctx, cfg.MQTT, svcLog.WithComponent("mqtt"))
		if err != nil {
			return err
		}

		defer pub.Close()

		hosts = append(hosts, pub)
	}

	service, err := airquality.NewService(&cfg, hosts, svcLog, airquality.WithRecorder(promMetrics))
	if err != nil {
		return fmt.Errorf("failed to create airquality service: %w", err)
	}

	server := api.NewServer(registry, service, svcLog.WithComponent("api"),
		api.WithHub(hub),
		api.WithMetricsHandler(promMetrics.Handler()),
		api.WithCORS(cfg.CORS),
		api.WithAPIKey(cfg.APIKey),
	)

	return lifecycle.RunService(ctx, &lifecycle.ServerOptions{
		ServiceName: "airquality-checker",
		Service:     service,
		Runners: []lifecycle.Runner{
			func(ctx context.Context) error { return server.Start(ctx, cfg.ListenAddr) },
		},
		Logger: svcLog,
	})
}

func connectKV(ctx context.Context) (*kvnats.Client, error) {
	addr := os.Getenv("KV_ADDRESS")
	if addr == "" {
		return nil, errKVAddressRequired
	}

	bucket := os.Getenv("KV_BUCKET")
	if bucket == "" {
		bucket = defaultKVBucket
	}

	return kvnats.Connect(ctx, addr, bucket)
}

// originChecker allows same-origin requests and the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}

		return slices.Contains(allowed, origin) || slices.Contains(allowed, "*")
	}
}
