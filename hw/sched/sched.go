// Package sched implements a cycle-based event scheduler: callbacks are
// registered once as event types, then scheduled any number of times at a
// given number of cycles in the future. Events run, in time order, when the
// main timeline advances.
//
// All methods but ScheduleEventThreadsafe must be called from the goroutine
// that owns the timeline.
package sched

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"

	"dspi/emu/log"
)

// EventType identifies a registered event callback.
type EventType int

// Callback is called when an event fires. cyclesLate is the number of cycles
// elapsed between the scheduled time of the event and the time it ran.
type Callback func(userdata uint64, cyclesLate int64)

type eventType struct {
	name string
	cb   Callback
}

type event struct {
	time     int64
	seq      uint64 // insertion order, breaks ties between same-time events
	typ      EventType
	userdata uint64
}

type tsEvent struct {
	delay    int64
	typ      EventType
	userdata uint64
}

type Scheduler struct {
	// now is only written by the timeline goroutine. It's atomic because log
	// entries built on other goroutines read it through AddLogContext.
	now    atomic.Int64
	seq    uint64
	types  []eventType
	events eventQueue

	tsMu     sync.Mutex
	tsEvents []tsEvent
}

func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the current time, in cycles.
func (s *Scheduler) Now() int64 { return s.now.Load() }

// RegisterEvent registers a named callback and returns its event type.
func (s *Scheduler) RegisterEvent(name string, cb Callback) EventType {
	et := EventType(len(s.types))
	s.types = append(s.types, eventType{name: name, cb: cb})
	log.ModSched.DebugZ("register event").String("name", name).Int("type", int(et)).End()
	return et
}

// RegisterPeriodic registers fn to be called every period cycles, starting
// period cycles from now. Late events are compensated so that the average
// rate is exact.
func (s *Scheduler) RegisterPeriodic(name string, period int64, fn func()) EventType {
	if period <= 0 {
		panic(fmt.Sprintf("sched: invalid period %d for %s", period, name))
	}
	var et EventType
	et = s.RegisterEvent(name, func(_ uint64, cyclesLate int64) {
		fn()
		s.ScheduleEvent(period-cyclesLate, et, 0)
	})
	s.ScheduleEvent(period, et, 0)
	return et
}

func (s *Scheduler) checkType(et EventType) {
	if int(et) < 0 || int(et) >= len(s.types) {
		panic(fmt.Sprintf("sched: unknown event type %d", et))
	}
}

// ScheduleEvent schedules an event of type et to fire cyclesIntoFuture
// cycles from now.
func (s *Scheduler) ScheduleEvent(cyclesIntoFuture int64, et EventType, userdata uint64) {
	s.checkType(et)
	heap.Push(&s.events, event{
		time:     s.now.Load() + cyclesIntoFuture,
		seq:      s.seq,
		typ:      et,
		userdata: userdata,
	})
	s.seq++
}

// ScheduleEventThreadsafe is like ScheduleEvent but can be called from any
// goroutine. The event is queued and enters the timeline the next time it
// advances; cyclesIntoFuture is relative to that moment.
func (s *Scheduler) ScheduleEventThreadsafe(cyclesIntoFuture int64, et EventType, userdata uint64) {
	s.tsMu.Lock()
	s.tsEvents = append(s.tsEvents, tsEvent{
		delay:    cyclesIntoFuture,
		typ:      et,
		userdata: userdata,
	})
	s.tsMu.Unlock()
}

// MoveEvents moves the events queued by ScheduleEventThreadsafe into the
// timeline, in the order they were queued.
func (s *Scheduler) MoveEvents() {
	s.tsMu.Lock()
	pending := s.tsEvents
	s.tsEvents = nil
	s.tsMu.Unlock()

	for _, ev := range pending {
		s.ScheduleEvent(ev.delay, ev.typ, ev.userdata)
	}
}

// Advance moves the timeline forward by cycles, running all events due in
// the meantime.
func (s *Scheduler) Advance(cycles int64) {
	target := s.now.Load() + cycles
	s.MoveEvents()

	for len(s.events) > 0 && s.events[0].time <= target {
		ev := heap.Pop(&s.events).(event)
		now := s.now.Load()
		if ev.time > now {
			now = ev.time
			s.now.Store(now)
		}
		s.types[ev.typ].cb(ev.userdata, now-ev.time)
	}
	s.now.Store(target)
}

// Pending returns the number of events in the timeline, not counting the
// ones queued from other goroutines and not moved yet.
func (s *Scheduler) Pending() int { return len(s.events) }

// AddLogContext adds the current cycle to log entries.
func (s *Scheduler) AddLogContext(z *log.EntryZ) {
	z.Int64("clk", s.now.Load())
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	*q = old[:n-1]
	return ev
}
