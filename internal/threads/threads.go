// Package threads assembles flat comment lists into root comments with one
// level of replies.
package threads

import "inkwell/internal/models"

// Thread is a root comment and its direct replies in input order.
type Thread struct {
	Root    *models.Comment
	Replies []*models.Comment
}

// Build partitions comments (ordered by creation) into threads. Replies
// whose parent is missing or is itself a reply are not attached anywhere.
func Build(comments []*models.Comment) []Thread {
	var threads []Thread
	index := make(map[uint]int, len(comments))

	for _, c := range comments {
		if c.ParentID == nil {
			index[c.ID] = len(threads)
			threads = append(threads, Thread{Root: c})
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok && *c.ParentID != c.ID {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads
}
