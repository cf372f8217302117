package pool

import (
	"container/heap"
	"time"
)

// schedEvent is a scheduled deadline for one pool member (its own
// Timeout, enforced independently by pkg/process, plus the pool-level
// "check again no later than" wakeup used by run()'s sleep step).
type schedEvent struct {
	id    int64
	when  time.Time
	index int
}

// scheduler is a min-heap of upcoming deadlines, adapted verbatim in
// shape from the teacher's processmgr.scheduler: it lets run() sleep
// only until the nearest member deadline when that comes before its
// fixed PollInterval tick.
type scheduler struct {
	h       eventHeap
	entries map[int64]*schedEvent
}

func newScheduler() *scheduler {
	h := eventHeap{}
	heap.Init(&h)
	return &scheduler{
		h:       h,
		entries: make(map[int64]*schedEvent),
	}
}

func (s *scheduler) push(id int64, when time.Time) {
	if old, ok := s.entries[id]; ok {
		heap.Remove(&s.h, old.index)
		delete(s.entries, id)
	}
	ev := &schedEvent{id: id, when: when}
	s.entries[id] = ev
	heap.Push(&s.h, ev)
}

func (s *scheduler) next() (id int64, when time.Time, ok bool) {
	if len(s.h) == 0 {
		return 0, time.Time{}, false
	}
	ev := s.h[0]
	return ev.id, ev.when, true
}

func (s *scheduler) remove(id int64) {
	ev, ok := s.entries[id]
	if !ok {
		return
	}
	heap.Remove(&s.h, ev.index)
	delete(s.entries, id)
}

func (s *scheduler) len() int { return len(s.h) }

type eventHeap []*schedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	return h[i].when.Before(h[j].when)
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	ev := x.(*schedEvent)
	ev.index = len(*h)
	*h = append(*h, ev)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	ev.index = -1
	*h = old[:n-1]
	return ev
}
