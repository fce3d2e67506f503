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

// Package kvnats stores config documents in a NATS JetStream key-value bucket.
package kvnats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type Client struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	bucket string
}

// Connect dials url and opens (creating if needed) the bucket.
func Connect(ctx context.Context, url, bucket string, opts ...nats.Option) (*Client, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	c, err := New(ctx, nc, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return c, nil
}

func New(ctx context.Context, nc *nats.Conn, bucket string) (*Client, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if err != nil {
		return nil, fmt.Errorf("open KV bucket %s: %w", bucket, err)
	}

	return &Client{nc: nc, kv: kv, bucket: bucket}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return entry.Value(), true, nil
}

func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.kv.Put(ctx, key, value)

	return err
}

func (c *Client) Close() error {
	c.nc.Close()

	return nil
}
