package memory

import (
	"context"
	"sync"
)

// ProgressLedger keeps passed segment ids per client and video in process memory.
type ProgressLedger struct {
	mu       sync.RWMutex
	progress map[string]map[string]map[string]struct{} // client -> video -> segment ids
}

func NewProgressLedger() *ProgressLedger {
	return &ProgressLedger{
		progress: make(map[string]map[string]map[string]struct{}),
	}
}

// Passed returns a copy of the passed set, creating an empty entry on first access.
func (l *ProgressLedger) Passed(_ context.Context, clientID, videoID string) (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	set := l.entryLocked(clientID, videoID)
	out := make(map[string]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out, nil
}

func (l *ProgressLedger) MarkPassed(_ context.Context, clientID, videoID, segmentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entryLocked(clientID, videoID)[segmentID] = struct{}{}
	return nil
}

func (l *ProgressLedger) entryLocked(clientID, videoID string) map[string]struct{} {
	videos, ok := l.progress[clientID]
	if !ok {
		videos = make(map[string]map[string]struct{})
		l.progress[clientID] = videos
	}
	set, ok := videos[videoID]
	if !ok {
		set = make(map[string]struct{})
		videos[videoID] = set
	}
	return set
}
