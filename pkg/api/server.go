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

// Package api serves the accessory status API: accessory listing,
// on-demand characteristic reads, a live update stream and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/checker/airquality"
	srHttp "github.com/carverauto/airsensor/pkg/http"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/sensor"
	"github.com/carverauto/airsensor/pkg/version"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// StatusSource reports per-accessory monitor status.
type StatusSource interface {
	Statuses() []airquality.Status
}

// Server is the HTTP API server.
type Server struct {
	router   *mux.Router
	registry *accessory.Registry
	statuses StatusSource
	hub      *Hub
	metrics  http.Handler
	cors     srHttp.CORSConfig
	apiKey   string
	logger   logger.Logger
}

// AccessoryResponse is one entry of GET /api/accessories.
type AccessoryResponse struct {
	Info     accessory.Info      `json:"info"`
	Services []accessory.Service `json:"services"`
	Status   *airquality.Status  `json:"status,omitempty"`
}

// CharacteristicResponse is the body of a single characteristic read.
type CharacteristicResponse struct {
	Accessory      string                   `json:"accessory"`
	Characteristic accessory.Characteristic `json:"characteristic"`
	Value          interface{}              `json:"value,omitempty"`
	Status         int                      `json:"status"`
	Error          string                   `json:"error,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	HAP     int    `json:"hap_status,omitempty"`
}

func WithHub(h *Hub) func(*Server) {
	return func(s *Server) { s.hub = h }
}

func WithMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) { s.metrics = h }
}

func WithCORS(cors srHttp.CORSConfig) func(*Server) {
	return func(s *Server) { s.cors = cors }
}

func WithAPIKey(key string) func(*Server) {
	return func(s *Server) { s.apiKey = key }
}

// NewServer creates a new API server over the registry and monitor statuses.
func NewServer(registry *accessory.Registry, statuses StatusSource, log logger.Logger, options ...func(*Server)) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		registry: registry,
		statuses: statuses,
		logger:   log,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.cors, s.logger)
	})

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(srHttp.APIKeyMiddleware(s.apiKey, s.logger))

	protected.HandleFunc("/accessories", s.handleAccessories).Methods(http.MethodGet)
	protected.HandleFunc("/accessories/{name}", s.handleAccessory).Methods(http.MethodGet)
	protected.HandleFunc("/accessories/{name}/characteristics", s.handleCharacteristics).Methods(http.MethodGet)
	protected.HandleFunc("/accessories/{name}/characteristics/{characteristic}", s.handleCharacteristic).
		Methods(http.MethodGet)

	if s.hub != nil {
		protected.Handle("/stream", s.hub).Methods(http.MethodGet)
	}
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	available := true

	for _, st := range s.statuses.Statuses() {
		if !st.Available {
			available = false
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"available": available,
		"version":   version.GetFullVersion(),
	})
}

func (s *Server) handleAccessories(w http.ResponseWriter, _ *http.Request) {
	statuses := s.statusByName()
	accessories := s.registry.List()

	out := make([]AccessoryResponse, 0, len(accessories))

	for _, acc := range accessories {
		out = append(out, newAccessoryResponse(acc, statuses))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccessory(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.registry.Get(mux.Vars(r)["name"])
	if !ok {
		writeError(w, "accessory not found", http.StatusNotFound, 0)
		return
	}

	writeJSON(w, http.StatusOK, newAccessoryResponse(acc, s.statusByName()))
}

func (s *Server) handleCharacteristics(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.registry.Get(mux.Vars(r)["name"])
	if !ok {
		writeError(w, "accessory not found", http.StatusNotFound, 0)
		return
	}

	values, err := acc.Reader.ReadAll()
	if err != nil {
		writeError(w, err.Error(), statusFor(err), sensor.Status(err))
		return
	}

	writeJSON(w, http.StatusOK, values)
}

func (s *Server) handleCharacteristic(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	c, ok := accessory.ParseCharacteristic(vars["characteristic"])
	if !ok {
		writeError(w, fmt.Sprintf("%s: %s", accessory.ErrUnknownCharacteristic, vars["characteristic"]),
			http.StatusNotFound, sensor.StatusResourceDoesNotExist)

		return
	}

	value, err := s.registry.Read(name, c)

	resp := CharacteristicResponse{
		Accessory:      name,
		Characteristic: c,
		Value:          value,
		Status:         sensor.Status(err),
	}

	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) statusByName() map[string]airquality.Status {
	out := make(map[string]airquality.Status)

	for _, st := range s.statuses.Statuses() {
		out[st.Name] = st
	}

	return out
}

func newAccessoryResponse(acc *accessory.Accessory, statuses map[string]airquality.Status) AccessoryResponse {
	resp := AccessoryResponse{Info: acc.Info, Services: acc.Services}

	if st, ok := statuses[acc.Info.Name]; ok {
		resp.Status = &st
	}

	return resp
}

// statusFor maps read errors onto HTTP: stale data is a gateway timeout,
// anything missing is not found.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sensor.ErrTimedOut):
		return http.StatusGatewayTimeout
	case errors.Is(err, sensor.ErrDoesNotExist),
		errors.Is(err, accessory.ErrAccessoryNotFound),
		errors.Is(err, accessory.ErrUnknownCharacteristic):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode, hap int) {
	writeJSON(w, statusCode, ErrorResponse{Message: message, Status: statusCode, HAP: hap})
}
