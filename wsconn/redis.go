// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wsconn

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisBindingsKey is the hash holding connectionID -> userID for every
// process in the fleet.
const redisBindingsKey = "rivaas:wsconn:bindings"

// redisChannelPrefix namespaces the per-connection Pub/Sub channels that
// Send/Close publish Frames on. Every process subscribes to the whole
// prefix pattern, so it receives Frames for all connections, including
// ones held by other processes.
const redisChannelPrefix = "rivaas:wsconn:conn:"

// Redis is a fleet-wide Store: connection->user bindings live in a Redis
// hash shared by every process, and Send/Close publish a Frame on the
// connection's own channel so whichever process actually holds that
// connection's local transport can deliver it.
type Redis struct {
	rdb *redis.Client
	out chan Frame
	sub *redis.PubSub
}

// NewRedis wraps an already-connected *redis.Client. The caller owns the
// client's lifecycle (construction/Ping/Close); NewRedis health-checks it
// up front via PSubscribe.
func NewRedis(ctx context.Context, rdb *redis.Client) (*Redis, error) {
	sub := rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("wsconn: redis subscribe: %w", err)
	}

	r := &Redis{rdb: rdb, out: make(chan Frame, 256), sub: sub}
	go r.pump()
	return r, nil
}

func (r *Redis) pump() {
	for msg := range r.sub.Channel() {
		var frame Frame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			continue
		}
		r.out <- frame
	}
}

func (r *Redis) Bind(ctx context.Context, connectionID, userID string) error {
	return r.rdb.HSet(ctx, redisBindingsKey, connectionID, userID).Err()
}

func (r *Redis) Unbind(ctx context.Context, connectionID string) error {
	n, err := r.rdb.HDel(ctx, redisBindingsKey, connectionID).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (r *Redis) ResolveUser(ctx context.Context, connectionID string) (string, error) {
	userID, err := r.rdb.HGet(ctx, redisBindingsKey, connectionID).Result()
	if err == redis.Nil {
		return "", ErrConnectionNotFound
	}
	return userID, err
}

func (r *Redis) ConnectionsFor(ctx context.Context, userID string) ([]string, error) {
	all, err := r.rdb.HGetAll(ctx, redisBindingsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for connID, u := range all {
		if userID == "" || u == userID {
			out = append(out, connID)
		}
	}
	return out, nil
}

func (r *Redis) Send(ctx context.Context, connectionID string, payload []byte) error {
	if _, err := r.rdb.HGet(ctx, redisBindingsKey, connectionID).Result(); err == redis.Nil {
		return ErrConnectionNotFound
	} else if err != nil {
		return err
	}
	return r.publish(ctx, Frame{ConnectionID: connectionID, Payload: payload})
}

func (r *Redis) Close(ctx context.Context, connectionID string) error {
	if _, err := r.rdb.HGet(ctx, redisBindingsKey, connectionID).Result(); err == redis.Nil {
		return ErrConnectionNotFound
	} else if err != nil {
		return err
	}
	return r.publish(ctx, Frame{ConnectionID: connectionID, Close: true})
}

func (r *Redis) publish(ctx context.Context, frame Frame) error {
	encoded, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, redisChannelPrefix+frame.ConnectionID, encoded).Err()
}

func (r *Redis) Outbound() <-chan Frame { return r.out }
