package app

import (
	"sync"

	"github.com/bembido/video-to-quiz/internal/domain"
)

// feeds fans out segment snapshots to every subscriber of a (client, video) pair.
type feeds struct {
	mu          sync.Mutex
	subscribers map[string]map[chan []domain.SegmentView]struct{}
}

func newFeeds() *feeds {
	return &feeds{subscribers: make(map[string]map[chan []domain.SegmentView]struct{})}
}

func (f *feeds) subscribe(key string, initial []domain.SegmentView) (<-chan []domain.SegmentView, func()) {
	ch := make(chan []domain.SegmentView, 8)
	ch <- initial

	f.mu.Lock()
	subs, ok := f.subscribers[key]
	if !ok {
		subs = make(map[chan []domain.SegmentView]struct{})
		f.subscribers[key] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[key]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, key)
		}
	}
	return ch, cancel
}

func (f *feeds) publish(key string, snapshot []domain.SegmentView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[key] {
		select {
		case ch <- snapshot:
		default:
			// subscriber is behind: replace its oldest snapshot with the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (f *feeds) hasSubscribers(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[key]) > 0
}
