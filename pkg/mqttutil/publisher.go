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

// Package mqttutil mirrors accessory characteristic updates onto MQTT topics.
package mqttutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/models"
)

const (
	defaultTopicPrefix    = "airsensor"
	defaultClientID       = "airsensor"
	defaultPublishTimeout = 5 * time.Second
)

var (
	errBrokerRequired = errors.New("mqtt broker is required")
	errInvalidQoS     = errors.New("mqtt qos must be 0, 1 or 2")
	errPublishTimeout = errors.New("mqtt publish timed out")
)

// Config is the "mqtt" section of the service config.
type Config struct {
	Broker         string          `json:"broker" yaml:"broker"`
	ClientID       string          `json:"client_id" yaml:"client_id"`
	Username       string          `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string          `json:"password,omitempty" yaml:"password,omitempty"`
	TopicPrefix    string          `json:"topic_prefix" yaml:"topic_prefix"`
	QoS            byte            `json:"qos" yaml:"qos"`
	Retain         bool            `json:"retain" yaml:"retain"`
	PublishTimeout models.Duration `json:"publish_timeout" yaml:"publish_timeout"`
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return errBrokerRequired
	}

	if c.QoS > 2 {
		return errInvalidQoS
	}

	return nil
}

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher is an accessory.Host writing one retained JSON message per
// characteristic to <prefix>/<accessory>/<characteristic>.
type Publisher struct {
	client  Client
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
	logger  logger.Logger
}

func NewPublisher(client Client, cfg *Config, log logger.Logger) *Publisher {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}

	timeout := cfg.PublishTimeout.Std()
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	return &Publisher{
		client:  client,
		prefix:  prefix,
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		timeout: timeout,
		logger:  log,
	}
}

// Connect dials the broker and returns a publisher bound to it.
func Connect(ctx context.Context, cfg *Config, log logger.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)

	p := NewPublisher(client, cfg, log)

	if err := p.wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	log.Info().Str("broker", cfg.Broker).Str("client_id", clientID).Msg("Connected to MQTT broker")

	return p, nil
}

// Topic returns the topic for one accessory leaf.
func (p *Publisher) Topic(accessoryName, leaf string) string {
	return p.prefix + "/" + accessory.Slug(accessoryName) + "/" + leaf
}

func (p *Publisher) Register(ctx context.Context, acc *accessory.Accessory) error {
	return p.publish(ctx, p.Topic(acc.Info.Name, "info"), acc.Info)
}

func (p *Publisher) Update(ctx context.Context, update accessory.Update) error {
	return p.publish(ctx, p.Topic(update.Accessory, string(update.Characteristic)), update)
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) publish(ctx context.Context, topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	if err := p.wait(ctx, p.client.Publish(topic, p.qos, p.retain, payload)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Trace().Str("topic", topic).Msg("Published MQTT message")

	return nil
}

func (p *Publisher) wait(ctx context.Context, token mqtt.Token) error {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
