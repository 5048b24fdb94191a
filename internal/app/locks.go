package app

import (
	"sort"
	"sync"

	"github.com/bembido/video-to-quiz/internal/domain"
)

// AllowedIndex is one past the highest passed index, or 0 without passes. Gaps below the
// highest pass are not required to be filled.
func AllowedIndex(segments []domain.Segment, passed map[string]struct{}) int {
	maxIndex := -1
	for _, s := range segments {
		if _, ok := passed[s.ID]; ok && s.Index > maxIndex {
			maxIndex = s.Index
		}
	}
	return maxIndex + 1
}

// LockMap marks every segment past AllowedIndex as locked.
func LockMap(segments []domain.Segment, passed map[string]struct{}) map[string]bool {
	allowed := AllowedIndex(segments, passed)
	locks := make(map[string]bool, len(segments))
	for _, s := range segments {
		locks[s.ID] = s.Index > allowed
	}
	return locks
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// keyLocks hands out one mutex per key and forgets it once nobody holds it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func progressKey(clientID, videoID string) string {
	return clientID + "\x00" + videoID
}
