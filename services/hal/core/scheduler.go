package core

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"
)

// slot is one scheduled component.
type slot struct {
	id     string
	next   time.Time
	every  time.Duration
	jitter time.Duration
	pos    int // index in the queue, -1 when not queued
}

// queue orders slots by next fire time.
type queue []*slot

func (q queue) Len() int           { return len(q) }
func (q queue) Less(i, j int) bool { return q[i].next.Before(q[j].next) }
func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].pos, q[j].pos = i, j
}
func (q *queue) Push(x any) {
	s := x.(*slot)
	s.pos = len(*q)
	*q = append(*q, s)
}
func (q *queue) Pop() any {
	old := *q
	s := old[len(old)-1]
	s.pos = -1
	*q = old[:len(old)-1]
	return s
}

// Scheduler emits component ids on out at their update interval. Ticks
// keep a fixed rate from the first fire; ticks missed while the consumer was
// busy are skipped rather than replayed. A full out channel drops the tick.
type Scheduler struct {
	mu    sync.Mutex
	slots map[string]*slot
	q     queue
	rnd   *rand.Rand
	kick  chan struct{}
	out   chan<- string
}

func NewScheduler(out chan<- string) *Scheduler {
	return &Scheduler{
		slots: map[string]*slot{},
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		kick:  make(chan struct{}, 1),
		out:   out,
	}
}

// Upsert schedules id every interval, the first fire after interval plus a
// random [0..jitter]. interval <= 0 removes the schedule.
func (s *Scheduler) Upsert(id string, interval, jitter time.Duration) {
	if interval <= 0 {
		s.Stop(id)
		return
	}
	s.mu.Lock()
	sl, ok := s.slots[id]
	if !ok {
		sl = &slot{id: id, pos: -1}
		s.slots[id] = sl
	}
	sl.every = interval
	sl.jitter = max(jitter, 0)
	sl.next = time.Now().Add(s.spread(sl))
	if sl.pos < 0 {
		heap.Push(&s.q, sl)
	} else {
		heap.Fix(&s.q, sl.pos)
	}
	s.mu.Unlock()
	s.poke()
}

func (s *Scheduler) Stop(id string) {
	s.mu.Lock()
	if sl, ok := s.slots[id]; ok {
		heap.Remove(&s.q, sl.pos)
		delete(s.slots, id)
	}
	s.mu.Unlock()
	s.poke()
}

// Interval returns the active interval for id, or 0 when unscheduled.
func (s *Scheduler) Interval(id string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[id]; ok {
		return sl.every
	}
	return 0
}

// Run fires due components until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		ids, wait := s.due(time.Now())
		for _, id := range ids {
			select {
			case s.out <- id:
			default:
			}
		}
		var tc <-chan time.Time // nil: sleep until kicked
		if wait > 0 {
			timer.Reset(wait)
			tc = timer.C
		}
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		case <-tc:
		}
	}
}

// due re-arms every slot whose time has come and returns their ids with the
// time until the next one (0 when nothing is scheduled).
func (s *Scheduler) due(now time.Time) (ids []string, wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.q) > 0 && !s.q[0].next.After(now) {
		sl := s.q[0]
		ids = append(ids, sl.id)
		sl.next = sl.next.Add(sl.every)
		if !sl.next.After(now) {
			sl.next = now.Add(s.spread(sl))
		}
		heap.Fix(&s.q, 0)
	}
	if len(s.q) > 0 {
		wait = s.q[0].next.Sub(now)
	}
	return ids, wait
}

func (s *Scheduler) poke() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// spread is the slot interval plus a random [0..jitter].
func (s *Scheduler) spread(sl *slot) time.Duration {
	if sl.jitter <= 0 {
		return sl.every
	}
	return sl.every + time.Duration(s.rnd.Int63n(int64(sl.jitter)+1))
}
