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

package mqttutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/airsensor/pkg/accessory"
	"github.com/carverauto/airsensor/pkg/logger"
	"github.com/carverauto/airsensor/pkg/models"
)

var errBrokerDown = errors.New("broker down")

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}

	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu       sync.Mutex
	messages []published
	token    func() mqtt.Token
	closed   bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})

	if c.token != nil {
		return c.token()
	}

	return newToken(nil, true)
}

func (c *fakeClient) Disconnect(uint) {
	c.closed = true
}

func TestPublisherUpdate(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	p := NewPublisher(client, &Config{Broker: "tcp://broker:1883", QoS: 1, Retain: true}, logger.NewTestLogger())

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := p.Update(context.Background(), accessory.Update{
		Accessory:      "Living Room",
		Characteristic: accessory.CurrentTemperature,
		Value:          21.5,
		Timestamp:      ts,
	})
	require.NoError(t, err)

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "airsensor/living_room/CurrentTemperature", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var got accessory.Update
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, accessory.CurrentTemperature, got.Characteristic)
	assert.InDelta(t, 21.5, got.Value, 0.001)

	p.Close()
	assert.True(t, client.closed)
}

func TestPublisherRegisterUsesPrefix(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	p := NewPublisher(client, &Config{TopicPrefix: "home/air"}, logger.NewTestLogger())

	require.NoError(t, p.Register(context.Background(), &accessory.Accessory{Info: accessory.Info{Name: "Office"}}))
	require.Len(t, client.messages, 1)
	assert.Equal(t, "home/air/office/info", client.messages[0].topic)
}

func TestPublisherErrors(t *testing.T) {
	t.Parallel()

	t.Run("token error", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{token: func() mqtt.Token { return newToken(errBrokerDown, true) }}
		p := NewPublisher(client, &Config{}, logger.NewTestLogger())

		err := p.Update(context.Background(), accessory.Update{Accessory: "a", Characteristic: accessory.AirQuality})
		require.ErrorIs(t, err, errBrokerDown)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{token: func() mqtt.Token { return newToken(nil, false) }}
		p := NewPublisher(client, &Config{PublishTimeout: models.Duration(20 * time.Millisecond)}, logger.NewTestLogger())

		err := p.Update(context.Background(), accessory.Update{Accessory: "a", Characteristic: accessory.AirQuality})
		require.ErrorIs(t, err, errPublishTimeout)
	})

	t.Run("context canceled", func(t *testing.T) {
		t.Parallel()

		client := &fakeClient{token: func() mqtt.Token { return newToken(nil, false) }}
		p := NewPublisher(client, &Config{}, logger.NewTestLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.Update(ctx, accessory.Update{Accessory: "a", Characteristic: accessory.AirQuality})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&Config{}).Validate(), errBrokerRequired)
	require.ErrorIs(t, (&Config{Broker: "tcp://b:1883", QoS: 3}).Validate(), errInvalidQoS)
	require.NoError(t, (&Config{Broker: "tcp://b:1883", QoS: 2}).Validate())
}
