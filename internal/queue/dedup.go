package queue

import "sort"

// isDuplicateAlbum reports whether some queued entry has the same count of
// items and the same multiset of content references as the candidate album.
// Comparison is order-independent: both reference lists are sorted and
// compared element-wise.
func isDuplicateAlbum(entries []*PostEntry, fileIDs []string) bool {
	candidate := append([]string(nil), fileIDs...)
	sort.Strings(candidate)

	for _, entry := range entries {
		if len(entry.Items) != len(candidate) {
			continue
		}
		queued := make([]string, 0, len(entry.Items))
		for _, item := range entry.Items {
			queued = append(queued, item.FileID)
		}
		sort.Strings(queued)

		match := true
		for i := range candidate {
			if candidate[i] != queued[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// isDuplicateSingle reports whether the candidate item duplicates a queued
// entry. An identical origin message id is always a duplicate (edit-replay
// guard). Content references match directly; captions match exactly, with the
// recurring dailyTag exempt so it is never blocked. Text-only candidates
// (no content reference) are matched by exact caption only.
func isDuplicateSingle(entries []*PostEntry, item MediaItem, dailyTag string) bool {
	for _, entry := range entries {
		if len(entry.Items) == 0 {
			continue
		}
		queued := entry.Items[0]

		if queued.OriginMessageID == item.OriginMessageID {
			return true
		}
		if item.FileID != "" && queued.FileID == item.FileID {
			return true
		}
		if item.Caption == "" || item.Caption == dailyTag || queued.Caption != item.Caption {
			continue
		}
		if item.FileID != "" {
			return true
		}
		if queued.FileID == "" {
			// Text-only duplicate detection is exact-caption-match only.
			return true
		}
	}
	return false
}
