package fs

import (
	"sync"
	"time"

	"github.com/aretw0/notebox/pkg/core"
)

// debouncer coalesces bursts of events per note id.
// An atomic save produces several raw notifications; callers see one.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	stopped bool
	gen     uint64
	pending map[string]pendingEvent
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	gen   uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]pendingEvent),
		timers:  make(map[string]*time.Timer),
	}
}

// add schedules e for delivery through fire after the quiet period.
func (d *debouncer) add(e core.Event, fire func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	key := e.ID
	if prev, ok := d.pending[key]; ok {
		e = mergeEvents(prev.event, e)
	}
	d.gen++
	gen := d.gen
	d.pending[key] = pendingEvent{event: e, gen: gen}

	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		p, ok := d.pending[key]
		if !ok || p.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		delete(d.timers, key)
		d.mu.Unlock()

		fire(p.event)
	})
}

// stopAndWait drops pending events and waits for in-flight deliveries.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.pending = make(map[string]pendingEvent)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// mergeEvents folds a newer event into an older one for the same id.
func mergeEvents(prev, next core.Event) core.Event {
	switch {
	case prev.Type == core.EventCreate && next.Type == core.EventModify:
		next.Type = core.EventCreate
	case prev.Type == core.EventDelete && next.Type == core.EventCreate:
		next.Type = core.EventModify
	}
	return next
}
