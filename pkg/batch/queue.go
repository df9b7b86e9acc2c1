/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"sync"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
)

// queue is the BatchWriter's admission queue: FIFO, with uniqueness by
// UniqueSuffix enforced at enqueue time (spec §4.5, §5 "BatchWriter
// queue").
type queue struct {
	mutex sync.Mutex
	ops   []*operation.Operation
	seen  map[string]struct{}
}

func newQueue() *queue {
	return &queue{seen: make(map[string]struct{})}
}

// add enqueues op, rejecting it with ErrMultipleOperationsPerDID if the
// queue already holds an operation for the same unique suffix. Create
// operations carry no UniqueSuffix assignment race with other pending
// creates for the same DID since the suffix is derived deterministically
// from SuffixData, so this check still applies once the suffix is known.
func (q *queue) add(op *operation.Operation, suffix string) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if _, ok := q.seen[suffix]; ok {
		return ErrMultipleOperationsPerDID
	}

	q.seen[suffix] = struct{}{}
	q.ops = append(q.ops, op)

	return nil
}

// len returns the number of operations currently queued.
func (q *queue) len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.ops)
}

// peek returns a copy of the first n queued operations, in enqueue
// order, without removing them. Pairing peek with a later removeFront
// on success (and no call at all on failure) implements the "any error
// before step 8 leaves the queue unchanged" rule.
func (q *queue) peek(n int) []*operation.Operation {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if n > len(q.ops) {
		n = len(q.ops)
	}

	out := make([]*operation.Operation, n)
	copy(out, q.ops[:n])

	return out
}

// removeFront drops the first n queued operations, identified by
// suffixes (in the same order peek returned them), freeing their
// suffixes for future admission.
func (q *queue) removeFront(n int, suffixes []string) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if n > len(q.ops) {
		n = len(q.ops)
	}

	for _, s := range suffixes[:n] {
		delete(q.seen, s)
	}

	q.ops = q.ops[n:]
}

// dropExpired removes every queued operation whose AnchorUntil has
// already passed as of now, wherever it sits in the queue, freeing its
// suffix for re-admission, and returns the dropped operations for the
// caller to log. An operation with AnchorUntil<=0 is unbounded and
// never expires this way.
func (q *queue) dropExpired(now int64) []*operation.Operation {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	var dropped []*operation.Operation

	kept := q.ops[:0]

	for _, op := range q.ops {
		if op.AnchorUntil > 0 && now > op.AnchorUntil {
			dropped = append(dropped, op)
			delete(q.seen, op.UniqueSuffix)

			continue
		}

		kept = append(kept, op)
	}

	q.ops = kept

	return dropped
}
