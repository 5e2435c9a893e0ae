package services

import (
	"time"

	"ranked-ledger/models"
)

// CommentThread is the ordered comment list of one match. Every operation returns a new
// slice; the receiver is never modified.
type CommentThread []models.Comment

// Append adds c at the end of the thread.
func (t CommentThread) Append(c models.Comment) CommentThread {
	out := make(CommentThread, 0, len(t)+1)
	out = append(out, t...)
	return append(out, c)
}

// Edit replaces the text of comment id, keeping its id, position and creation time.
func (t CommentThread) Edit(id, text string, at time.Time) (CommentThread, models.Comment, bool) {
	out := make(CommentThread, len(t))
	copy(out, t)
	for i := range out {
		if out[i].ID == id {
			out[i].Text = text
			out[i].UpdatedAt = at
			return out, out[i], true
		}
	}
	return nil, models.Comment{}, false
}

// Delete removes exactly comment id.
func (t CommentThread) Delete(id string) (CommentThread, bool) {
	out := make(CommentThread, 0, len(t))
	found := false
	for _, c := range t {
		if c.ID == id && !found {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		return nil, false
	}
	return out, true
}

// Find returns comment id.
func (t CommentThread) Find(id string) (models.Comment, bool) {
	for _, c := range t {
		if c.ID == id {
			return c, true
		}
	}
	return models.Comment{}, false
}
