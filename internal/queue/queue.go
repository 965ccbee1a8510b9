package queue

import (
	"log"
	"sync"
)

// Queue is the ordered buffer of posts waiting to be published. It is the
// single source of truth for staged content; order is FIFO and drain always
// takes the eligible head.
//
// Handlers, timer callbacks and cron jobs all reach the queue from their own
// goroutines, so every operation takes the mutex. Queued entries are mutated
// only through UpdateByOriginMessageID and AppendToAlbum, which run under the
// same lock; the cron drain may dequeue an entry at any moment, so callers
// must never write to an entry obtained from Find*.
type Queue struct {
	mu      sync.Mutex
	entries []*PostEntry
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends an entry and returns the new queue length.
func (q *Queue) Enqueue(entry *PostEntry) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	log.Printf("[QUEUE] Enqueued entry (items=%d album=%q), length now %d", len(entry.Items), entry.AlbumID, len(q.entries))
	return len(q.entries)
}

// DequeueHead removes and returns the first entry eligible for periodic
// delivery, or nil when none is. Entries owned by a one-shot timer
// (ScheduledAt set) are left in place. Never blocks.
func (q *Queue) DequeueHead() *PostEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if entry.ScheduledAt == nil {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return entry
		}
	}
	return nil
}

// FindByOriginMessageID returns the entry whose first item originated from
// the given admin message.
func (q *Queue) FindByOriginMessageID(messageID int) (*PostEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if len(entry.Items) > 0 && entry.Items[0].OriginMessageID == messageID {
			return entry, true
		}
	}
	return nil, false
}

// FindByAlbumID returns the entry carrying the given album identifier.
func (q *Queue) FindByAlbumID(albumID string) (*PostEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.AlbumID != "" && entry.AlbumID == albumID {
			return entry, true
		}
	}
	return nil, false
}

// UpdateByOriginMessageID applies update to the first item of the entry whose
// first item originated from the given admin message. The mutation runs under
// the queue lock, serialized against the drain cycle; an entry already
// dequeued is simply not found.
func (q *Queue) UpdateByOriginMessageID(messageID int, update func(*MediaItem)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if len(entry.Items) > 0 && entry.Items[0].OriginMessageID == messageID {
			update(&entry.Items[0])
			return true
		}
	}
	return false
}

// AppendToAlbum merges items into the queued entry carrying the album
// identifier, keeping one PostEntry per album id. Returns false when no such
// entry is queued.
func (q *Queue) AppendToAlbum(albumID string, items []MediaItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.AlbumID != "" && entry.AlbumID == albumID {
			entry.Items = append(entry.Items, items...)
			return true
		}
	}
	return false
}

// RemoveByOriginMessageID removes the entry whose first item originated from
// the given admin message and returns it.
func (q *Queue) RemoveByOriginMessageID(messageID int) (*PostEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if len(entry.Items) > 0 && entry.Items[0].OriginMessageID == messageID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return entry, true
		}
	}
	return nil, false
}

// RemoveByAlbumID removes the entry carrying the given album identifier and
// returns it.
func (q *Queue) RemoveByAlbumID(albumID string) (*PostEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if entry.AlbumID != "" && entry.AlbumID == albumID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return entry, true
		}
	}
	return nil, false
}

// RemoveAt removes the entry at the given position.
func (q *Queue) RemoveAt(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.entries) {
		return false
	}
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	return true
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsDuplicateAlbum reports whether a queued entry already holds the same
// multiset of content references.
func (q *Queue) IsDuplicateAlbum(fileIDs []string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return isDuplicateAlbum(q.entries, fileIDs)
}

// IsDuplicateSingle reports whether the candidate single item duplicates a
// queued entry. dailyTag is exempt from caption-based matching.
func (q *Queue) IsDuplicateSingle(item MediaItem, dailyTag string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return isDuplicateSingle(q.entries, item, dailyTag)
}
