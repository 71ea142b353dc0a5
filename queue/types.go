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
	"time"
)

// Message is one host-delivered queue entry: id, optional FIFO
// group id, opaque receipt handle, raw body, and the attribute bag the
// host attached (receivedCount, sentAt, sequenceNumber, the declared
// media type, the originating userId, and a query-string-encoded params
// blob).
type Message struct {
	MessageID      string
	GroupID        string // non-empty implies FIFO handling for this message
	ReceiptHandle  string
	Body           []byte
	ReceivedCount  int
	SentAt         time.Time
	SequenceNumber string
	Type           string // declared media type of Body, e.g. "application/json"
	UserID         string
	Params         string // query-string-encoded path/binding params
}

// Batch is an ordered set of messages sharing a delivery source, plus the
// host's remaining-time oracle.
type Batch struct {
	QueueName string
	Messages  []Message
	// RemainingTime reports how much wall-clock budget is left for the
	// whole batch. A per-message effective timeout is
	// min(queue.Timeout, RemainingTime()).
	RemainingTime func() time.Duration
}

// Result is the dispatch outcome: the itemIdentifier values (message
// ids) the host must leave on/return to the queue.
type Result struct {
	Failed []string
}

// Dispatcher is the narrow interface the ambient queueJob operation and
// a route-backed-queue HTTP handler need: enqueue one payload and get
// back the assigned message id.
type Dispatcher interface {
	Enqueue(ctx context.Context, queueName string, payload any) (messageID string, err error)
}
