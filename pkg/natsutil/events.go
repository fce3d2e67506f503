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

// Package natsutil publishes accessory registrations and characteristic
// updates as CloudEvents on a NATS JetStream stream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/logger"
)

const (
	eventSource = "airsensor"

	EventTypeRegistered = "com.carverauto.airsensor.accessory.registered"
	EventTypeUpdate     = "com.carverauto.airsensor.characteristic.update"

	defaultStream        = "AIRSENSOR"
	defaultSubjectPrefix = "airsensor"
)

var errNATSURLRequired = errors.New("nats url is required")

// Config is the "nats" section of the service config.
type Config struct {
	URL           string    `json:"url" yaml:"url"`
	Stream        string    `json:"stream" yaml:"stream"`
	SubjectPrefix string    `json:"subject_prefix" yaml:"subject_prefix"`
	Domain        string    `json:"domain,omitempty" yaml:"domain,omitempty"`
	TLS           *TLSFiles `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// CloudEvent is the CloudEvents 1.0 JSON envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data"`
}

// EventPublisher is an accessory.Host that mirrors registrations and
// characteristic pushes onto JetStream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
	prefix string
	logger logger.Logger
}

func NewEventPublisher(js jetstream.JetStream, streamName, subjectPrefix string, log logger.Logger) *EventPublisher {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	return &EventPublisher{js: js, stream: streamName, prefix: subjectPrefix, logger: log}
}

// Subject returns the subject for an accessory event, e.g.
// airsensor.living_room.CarbonDioxideLevel.
func (p *EventPublisher) Subject(accessoryName, leaf string) string {
	return p.prefix + "." + accessory.Slug(accessoryName) + "." + leaf
}

func (p *EventPublisher) Register(ctx context.Context, acc *accessory.Accessory) error {
	now := time.Now().UTC()

	return p.publish(ctx, EventTypeRegistered, p.Subject(acc.Info.Name, "registered"), &now, acc)
}

func (p *EventPublisher) Update(ctx context.Context, update accessory.Update) error {
	ts := update.Timestamp

	return p.publish(ctx, EventTypeUpdate, p.Subject(update.Accessory, string(update.Characteristic)), &ts, update)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, subject string, ts *time.Time, data interface{}) error {
	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            ts,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Trace().
		Str("subject", subject).
		Str("event_id", event.ID).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// Connect dials NATS, ensures the stream captures <prefix>.> and returns
// the publisher along with the connection the caller must close.
func Connect(ctx context.Context, cfg Config, log logger.Logger) (*EventPublisher, *nats.Conn, error) {
	if cfg.URL == "" {
		return nil, nil, errNATSURLRequired
	}

	nc, err := dial(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	stream := cfg.Stream
	if stream == "" {
		stream = defaultStream
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	js, err := newJetStream(nc, cfg.Domain)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	if err := ensureStream(ctx, js, stream, prefix+".>"); err != nil {
		nc.Close()
		return nil, nil, err
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("stream", stream).Msg("Connected to NATS JetStream")

	return NewEventPublisher(js, stream, prefix, log), nc, nil
}

func dial(cfg Config, log logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("airsensor"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

func newJetStream(nc *nats.Conn, domain string) (jetstream.JetStream, error) {
	if domain != "" {
		js, err := jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}

		return js, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return js, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	stream, err := js.Stream(ctx, name)
	if err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			return fmt.Errorf("failed to look up stream %s: %w", name, err)
		}

		_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: name, Subjects: []string{subject}})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}

		return nil
	}

	cfg := stream.CachedInfo().Config

	subjects := ensureSubjectList(cfg.Subjects, subject)
	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add %s to stream %s: %w", subject, name, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern, which may contain NATS wildcards,
// covers subject. A subject may itself be a wildcard, which only a
// wider-or-equal pattern covers.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}

		if tok == "*" && st[i] == ">" {
			return false
		}
	}

	return len(pt) == len(st)
}
