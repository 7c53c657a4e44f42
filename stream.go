// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// drainInterval paces the progress log while waiting for in-flight
// transfers to complete.
const drainInterval = 100 * time.Millisecond

// BulkReader is the device side of the capture pipeline. *RX888 implements
// it; tests substitute their own.
type BulkReader interface {
	ReadBulk(p []byte) (int, error)
}

// transferSlot owns one fixed-size buffer. Between submission and
// completion the transfer engine owns the slot; at every other time the
// dispatcher does.
type transferSlot struct {
	index  int
	buf    []byte
	actual int
	err    error
}

// Stream is the bulk capture pipeline: a fixed pool of transfer slots, a
// transfer engine performing the blocking bulk reads, and a single-threaded
// completion dispatcher that forwards sample data to the output sink and
// resubmits each slot. Total buffer memory is fixed at queue depth times
// request size for the life of the stream.
type Stream struct {
	dev         BulkReader
	out         io.Writer
	derandomize bool

	slots   []*transferSlot
	submitC chan *transferSlot
	doneC   chan *transferSlot

	stopRequested atomic.Bool
	stopC         chan struct{}
	stopOnce      sync.Once
	engineDone    chan struct{}

	inFlight     atomic.Int32
	successCount atomic.Uint32
	failureCount atomic.Uint32
	writeErrors  atomic.Uint32
	bytesWritten atomic.Uint64
}

// NewStream allocates the transfer pool: queueDepth slots of requestBytes
// each. The pool is fully allocated here or not at all.
func NewStream(dev BulkReader, out io.Writer, queueDepth, requestBytes int, derandomize bool) (*Stream, error) {
	if queueDepth < MinQueueDepth || queueDepth > MaxQueueDepth {
		return nil, fmt.Errorf("invalid queue depth %d: must be %d..%d",
			queueDepth, MinQueueDepth, MaxQueueDepth)
	}
	if requestBytes <= 0 {
		return nil, fmt.Errorf("invalid request size %d bytes", requestBytes)
	}
	s := Stream{
		dev:         dev,
		out:         out,
		derandomize: derandomize,
		slots:       make([]*transferSlot, queueDepth),
		submitC:     make(chan *transferSlot, queueDepth),
		doneC:       make(chan *transferSlot, queueDepth),
		stopC:       make(chan struct{}),
		engineDone:  make(chan struct{}),
	}
	for i := range s.slots {
		s.slots[i] = &transferSlot{index: i, buf: make([]byte, requestBytes)}
	}
	return &s, nil
}

// Start launches the transfer engine and submits every slot.
func (s *Stream) Start() {
	go s.engine()
	for _, slot := range s.slots {
		s.submit(slot)
	}
}

// submit hands a slot to the transfer engine. The submission queue holds
// the whole pool, so the send never blocks.
func (s *Stream) submit(slot *transferSlot) {
	s.inFlight.Add(1)
	s.submitC <- slot
}

// engine performs the blocking bulk reads. It is the only goroutine that
// touches a slot between submission and completion.
func (s *Stream) engine() {
	defer close(s.engineDone)
	for slot := range s.submitC {
		slot.actual, slot.err = s.dev.ReadBulk(slot.buf)
		s.doneC <- slot
	}
}

// Run drives completion handling on the calling goroutine until a stop is
// requested, then drains the remaining in-flight transfers. Nothing bounds
// the drain: a stop never aborts a submitted transfer, it only suppresses
// resubmission.
func (s *Stream) Run() {
	for !s.stopRequested.Load() {
		select {
		case slot := <-s.doneC:
			s.onCompletion(slot)
		case <-s.stopC:
		}
	}
	for s.InFlight() > 0 {
		log.Printf("[INFO] %d transfers are pending", s.InFlight())
		select {
		case slot := <-s.doneC:
			s.onCompletion(slot)
		case <-time.After(drainInterval):
		}
	}
	close(s.submitC)
	<-s.engineDone
}

// onCompletion handles one completed transfer. It runs only on the
// dispatcher goroutine and must not block: transient transfer and write
// errors are counted and logged, and the slot goes straight back on the
// queue unless a stop was requested.
func (s *Stream) onCompletion(slot *transferSlot) {
	s.inFlight.Add(-1)
	if slot.err != nil {
		s.failureCount.Add(1)
		log.Printf("[ERROR] Transfer %d failed: %s", slot.index, slot.err)
	} else {
		s.successCount.Add(1)
		p := slot.buf[:slot.actual]
		if s.derandomize {
			Derandomize(p)
		}
		if n, err := s.out.Write(p); err != nil {
			s.writeErrors.Add(1)
			log.Printf("[ERROR] Error writing to output: %s", err)
		} else {
			s.bytesWritten.Add(uint64(n))
		}
	}
	if !s.stopRequested.Load() {
		s.submit(slot)
	}
}

// RequestStop asks the dispatcher to wind down. It only sets a flag and
// closes a channel, so it is safe to call from the signal goroutine.
func (s *Stream) RequestStop() {
	s.stopOnce.Do(func() {
		s.stopRequested.Store(true)
		close(s.stopC)
	})
}

// InFlight returns the number of transfers currently submitted to the
// engine but not yet handled by the dispatcher.
func (s *Stream) InFlight() int {
	return int(s.inFlight.Load())
}

// SuccessCount returns the number of transfers completed without error.
func (s *Stream) SuccessCount() uint32 {
	return s.successCount.Load()
}

// FailureCount returns the number of transfers that completed with an
// error status.
func (s *Stream) FailureCount() uint32 {
	return s.failureCount.Load()
}

// WriteErrorCount returns the number of failed sink writes.
func (s *Stream) WriteErrorCount() uint32 {
	return s.writeErrors.Load()
}

// BytesWritten returns the number of bytes delivered to the sink.
func (s *Stream) BytesWritten() uint64 {
	return s.bytesWritten.Load()
}
