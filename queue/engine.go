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
	"errors"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"rivaas.dev/runtime/ambient"
	"rivaas.dev/runtime/manifest"
	"rivaas.dev/runtime/obs"
)

// ErrQueueNotFound is returned when a batch names a queue absent from the
// manifest.
var ErrQueueNotFound = errors.New("queue: not found")

// Engine is component G: the single Dispatch entry point a host adapter
// calls with an inbound batch.
type Engine struct {
	services *manifest.Services
	ops      ambient.Operations
	obs      obs.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the Recorder the Engine reports each batch dispatch
// to. Default: obs.Noop().
func WithRecorder(r obs.Recorder) Option {
	return func(e *Engine) { e.obs = r }
}

// NewEngine builds an Engine over services, installing ops as the
// ambient.Operations collaborator opened for every message's scope.
func NewEngine(services *manifest.Services, ops ambient.Operations, opts ...Option) *Engine {
	e := &Engine{services: services, ops: ops, obs: obs.Noop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch classifies batch as FIFO or standard and applies the matching
// ordering semantics, returning the
// itemIdentifier set the host must leave on the queue.
func (e *Engine) Dispatch(ctx context.Context, batch Batch) (Result, error) {
	start := time.Now()
	q, ok := e.services.Queue(batch.QueueName)
	if !ok {
		return Result{}, ErrQueueNotFound
	}

	var result Result
	if isFIFO(q, batch) {
		result = e.dispatchFIFO(ctx, q, batch)
	} else {
		result = e.dispatchStandard(ctx, q, batch)
	}
	e.obs.QueueDispatch(ctx, batch.QueueName, len(result.Failed), len(batch.Messages), time.Since(start))
	return result, nil
}

// isFIFO infers FIFO either from the queue descriptor's name-derived
// flag or the presence of a per-message GroupID attribute.
func isFIFO(q *manifest.Queue, batch Batch) bool {
	if q.FIFO {
		return true
	}
	for _, m := range batch.Messages {
		if m.GroupID != "" {
			return true
		}
	}
	return false
}

// dispatchStandard runs every message concurrently; order carries no
// meaning.
func (e *Engine) dispatchStandard(ctx context.Context, q *manifest.Queue, batch Batch) Result {
	failed := make([]bool, len(batch.Messages))
	var wg errgroup.Group
	for i, m := range batch.Messages {
		i, m := i, m
		wg.Go(func() error {
			if err := e.dispatchOne(ctx, q, batch, m); err != nil {
				failed[i] = true
			}
			return nil
		})
	}
	_ = wg.Wait()

	var result Result
	for i, f := range failed {
		if f {
			result.Failed = append(result.Failed, batch.Messages[i].MessageID)
		}
	}
	return result
}

// dispatchFIFO groups messages by GroupID preserving arrival order,
// dispatches distinct groups concurrently, and within a group dispatches
// strictly sequentially, cutting off the rest of that group's messages
// on the first failure.
func (e *Engine) dispatchFIFO(ctx context.Context, q *manifest.Queue, batch Batch) Result {
	order := []string{}
	groups := map[string][]Message{}
	for _, m := range batch.Messages {
		if _, seen := groups[m.GroupID]; !seen {
			order = append(order, m.GroupID)
		}
		groups[m.GroupID] = append(groups[m.GroupID], m)
	}

	failedPerGroup := make([][]string, len(order))
	var wg errgroup.Group
	for idx, groupID := range order {
		idx, groupID := idx, groupID
		wg.Go(func() error {
			failedPerGroup[idx] = e.dispatchGroupSequential(ctx, q, batch, groups[groupID])
			return nil
		})
	}
	_ = wg.Wait()

	var result Result
	for _, failed := range failedPerGroup {
		result.Failed = append(result.Failed, failed...)
	}
	return result
}

// dispatchGroupSequential dispatches one FIFO group's messages in order,
// stopping at the first failure: that message and every remaining one in
// the group are reported failed; earlier successes, already deleted,
// stand.
func (e *Engine) dispatchGroupSequential(ctx context.Context, q *manifest.Queue, batch Batch, messages []Message) []string {
	for i, m := range messages {
		if err := e.dispatchOne(ctx, q, batch, m); err != nil {
			failed := make([]string, 0, len(messages)-i)
			for _, rest := range messages[i:] {
				failed = append(failed, rest.MessageID)
			}
			return failed
		}
	}
	return nil
}

// dispatchOne runs a single message through the queue module's handler,
// honoring the effective timeout race and invoking onError on failure.
func (e *Engine) dispatchOne(ctx context.Context, q *manifest.Queue, batch Batch, m Message) error {
	effective := q.Timeout
	if batch.RemainingTime != nil {
		if remaining := batch.RemainingTime(); remaining < effective {
			effective = remaining
		}
	}
	if effective <= 0 {
		return errTimedOut
	}

	msgCtx, cancel := context.WithTimeout(ctx, effective)
	defer cancel()

	var user *manifest.User
	if m.UserID != "" {
		user = &manifest.User{ID: m.UserID}
	}

	ambientCtx, release, err := ambient.Open(msgCtx, e.ops)
	if err != nil {
		return err
	}
	defer release()
	if user != nil {
		if scope, scopeErr := ambient.Current(ambientCtx); scopeErr == nil {
			_ = scope.SetUser(user)
		}
	}

	params := parseParams(m.Params)
	payload := decodePayload(m.Body, m.Type)

	meta := &manifest.QueueMetadata{
		MessageID:      m.MessageID,
		GroupID:        m.GroupID,
		Params:         params,
		QueueName:      batch.QueueName,
		ReceivedCount:  m.ReceivedCount,
		SentAt:         m.SentAt,
		SequenceNumber: m.SequenceNumber,
		User:           user,
	}

	type outcome struct{ err error }
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errHandlerPanic}
			}
		}()
		done <- outcome{err: q.Module.Handler(ambientCtx, payload, meta)}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if q.Module.OnError != nil {
				q.Module.OnError(ambientCtx, o.err, meta)
			}
			return o.err
		}
		return nil
	case <-msgCtx.Done():
		if q.Module.OnError != nil {
			q.Module.OnError(ambientCtx, errTimedOut, meta)
		}
		return errTimedOut
	}
}

var errTimedOut = errors.New("queue: message timed out")
var errHandlerPanic = errors.New("queue: handler panicked")

// parseParams turns the query-string-encoded params attribute into a flat
// map, taking the first value for any repeated key.
func parseParams(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// decodePayload attempts JSON when declaredType is empty, "json" or
// "application/json", falling back to the raw string if body does not
// parse. Any other declaredType yields the raw string without a JSON attempt.
func decodePayload(body []byte, declaredType string) any {
	tryJSON := declaredType == "" || declaredType == "application/json" || declaredType == "json"
	if tryJSON {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}
