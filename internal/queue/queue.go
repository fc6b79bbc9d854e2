// Copyright 2021 FerretDB Inc.
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

// Package queue provides the bounded, multi-producer multi-consumer handoff
// between input-side producers and output-side worker pools.
package queue

import (
	"context"

	"github.com/cdumay/flowgger/internal/errkind"
)

// Queue is a bounded channel of encoded payloads. Multiple producers may
// Send concurrently; multiple consumers may Receive concurrently. Go's
// channel runtime already serializes concurrent receives against the same
// underlying buffer, so each payload reaches exactly one consumer without
// an additional mutex around the receiving end.
type Queue struct {
	ch chan []byte
}

// New returns a Queue with room for capacity payloads before Send blocks.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan []byte, capacity)}
}

// Send enqueues payload, blocking while the queue is full. It returns a
// Disconnected-kind error wrapping ctx.Err() if ctx is canceled first.
func (q *Queue) Send(ctx context.Context, payload []byte) error {
	select {
	case q.ch <- payload:
		return nil
	case <-ctx.Done():
		return errkind.Wrap(errkind.Disconnected, ctx.Err())
	}
}

// Receive dequeues one payload, blocking while the queue is empty. It
// returns ok == false once the queue has been Closed and fully drained.
func (q *Queue) Receive(ctx context.Context) (payload []byte, ok bool, err error) {
	select {
	case payload, ok = <-q.ch:
		return payload, ok, nil
	case <-ctx.Done():
		return nil, false, errkind.Wrap(errkind.Disconnected, ctx.Err())
	}
}

// Close signals that no further payloads will be sent. Producers must stop
// calling Send before Close is invoked; consumers observe a closed, drained
// queue as Receive returning ok == false.
func (q *Queue) Close() {
	close(q.ch)
}

// Len reports the number of payloads currently buffered, for metrics.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap reports the queue's configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
