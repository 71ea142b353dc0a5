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

package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"rivaas.dev/runtime/ambient"
	"rivaas.dev/runtime/manifest"
)

// LocalDispatcher answers the ambient queueJob operation without a real
// broker: it synthesizes a one-message batch and re-enters this same
// Engine's Dispatch path synchronously, through ambient.Escape so the
// re-entrant ambient.Open does not trip nested-scope detection. This is
// the dev-mode simulated enqueue for local development without a real
// queue backend.
type LocalDispatcher struct {
	engine *Engine
}

// NewLocalDispatcher builds a LocalDispatcher over services, sharing ops
// with whatever engine ultimately handles inbound batches for the same
// services table.
func NewLocalDispatcher(services *manifest.Services, ops ambient.Operations, opts ...Option) *LocalDispatcher {
	return &LocalDispatcher{engine: NewEngine(services, ops, opts...)}
}

// Enqueue marshals payload to JSON, assigns a new message id, and
// dispatches it immediately against the target queue's registered
// handler, returning the assigned id regardless of whether the handler
// ultimately succeeds (matching a real broker's fire-and-forget accept).
func (d *LocalDispatcher) Enqueue(ctx context.Context, queueName string, payload any) (string, error) {
	q, ok := d.engine.services.Queue(queueName)
	if !ok {
		return "", ErrQueueNotFound
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	messageID := uuid.NewString()
	msg := Message{
		MessageID: messageID,
		Body:      body,
		Type:      "application/json",
		SentAt:    time.Now(),
	}
	if q.FIFO {
		msg.GroupID = messageID
	}

	batch := Batch{
		QueueName:     queueName,
		Messages:      []Message{msg},
		RemainingTime: func() time.Duration { return q.Timeout },
	}

	var dispatchErr error
	ambient.Escape(ctx, func(escaped context.Context) {
		_, dispatchErr = d.engine.Dispatch(escaped, batch)
	})
	return messageID, dispatchErr
}
