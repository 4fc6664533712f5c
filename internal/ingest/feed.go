package ingest

import (
	"sync"

	"air_monitor/internal/models"
)

// Feed is an in-process push source. The simulator publishes into it and
// tests use it to drive a session without a broker.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]feedSub
}

type feedSub struct {
	path   string
	onSnap func(models.Snapshot)
	onErr  func(error)
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]feedSub)}
}

// Subscribe registers handlers for path. The returned func removes them and
// is safe to call more than once.
func (f *Feed) Subscribe(path string, onSnap func(models.Snapshot), onErr func(error)) (func(), error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = feedSub{path: path, onSnap: onSnap, onErr: onErr}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}, nil
}

// Publish delivers s synchronously to every subscriber of path.
func (f *Feed) Publish(path string, s models.Snapshot) {
	for _, sub := range f.matching(path) {
		if sub.onSnap != nil {
			sub.onSnap(s)
		}
	}
}

// PublishError delivers err on the error channel of every subscriber of path.
func (f *Feed) PublishError(path string, err error) {
	for _, sub := range f.matching(path) {
		if sub.onErr != nil {
			sub.onErr(err)
		}
	}
}

// Subscribers reports how many handlers are registered for path.
func (f *Feed) Subscribers(path string) int {
	return len(f.matching(path))
}

func (f *Feed) matching(path string) []feedSub {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]feedSub, 0, len(f.subs))
	for _, s := range f.subs {
		if s.path == path {
			out = append(out, s)
		}
	}
	return out
}
