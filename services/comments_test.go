package services

import (
	"errors"
	"testing"
	"time"

	"ranked-ledger/models"
)

func TestCommentThread(t *testing.T) {
	at := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	base := CommentThread{
		{ID: "c1", Text: "first"},
		{ID: "c2", Text: "second"},
	}

	appended := base.Append(models.Comment{ID: "c3", Text: "third"})
	if len(appended) != 3 || len(base) != 2 {
		t.Fatalf("append: got %d, base %d", len(appended), len(base))
	}

	edited, c, ok := base.Edit("c2", "changed", at)
	if !ok {
		t.Fatal("edit: expected to find c2")
	}
	if c.Text != "changed" || !c.UpdatedAt.Equal(at) {
		t.Fatalf("edit: unexpected comment %+v", c)
	}
	if base[1].Text != "second" {
		t.Fatal("edit modified the receiver")
	}
	if edited[0].ID != "c1" || edited[1].ID != "c2" {
		t.Fatal("edit changed the order")
	}

	deleted, ok := base.Delete("c1")
	if !ok || len(deleted) != 1 || deleted[0].ID != "c2" {
		t.Fatalf("delete: unexpected result %+v", deleted)
	}
	if len(base) != 2 {
		t.Fatal("delete modified the receiver")
	}

	if _, _, ok := base.Edit("missing", "x", at); ok {
		t.Fatal("edit of unknown id should fail")
	}
	if _, ok := base.Delete("missing"); ok {
		t.Fatal("delete of unknown id should fail")
	}
	if found, ok := base.Find("c2"); !ok || found.Text != "second" {
		t.Fatalf("find: got %+v %v", found, ok)
	}
}

func TestLedgerCommentRoundTrip(t *testing.T) {
	l := newTestLedger()
	s := activeSession(500, 25)

	s, m, err := l.AddComment(s, "match-1", "  great clutch  ")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if len(m.Comments) != 1 || m.Comments[0].Text != "great clutch" {
		t.Fatalf("unexpected comments %+v", m.Comments)
	}
	commentID := m.Comments[0].ID

	s, m, err = l.EditComment(s, "match-1", commentID, "great 1v3 clutch")
	if err != nil {
		t.Fatalf("edit comment: %v", err)
	}
	if m.Comments[0].Text != "great 1v3 clutch" || m.Comments[0].UpdatedAt.IsZero() {
		t.Fatalf("unexpected edit %+v", m.Comments[0])
	}

	s, m, err = l.DeleteComment(s, "match-1", commentID)
	if err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if len(m.Comments) != 0 {
		t.Fatalf("expected no comments, got %d", len(m.Comments))
	}
	if s.CurrentPoints != 525 {
		t.Fatalf("comments must not move points, got %d", s.CurrentPoints)
	}
}

func TestCommentsOnCompletedSession(t *testing.T) {
	l := newTestLedger()
	s := activeSession(500, 25)
	s.Status = models.SessionStatusCompleted

	if _, _, err := l.AddComment(s, "match-1", "review later"); err != nil {
		t.Fatalf("expected comments to be allowed on completed sessions, got %v", err)
	}
}

func TestCommentErrors(t *testing.T) {
	l := newTestLedger()
	s := activeSession(0, 1)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "empty text",
			run: func() error {
				_, _, err := l.AddComment(s, "match-1", "   ")
				return err
			},
			want: ErrValidation,
		},
		{
			name: "unknown match",
			run: func() error {
				_, _, err := l.AddComment(s, "nope", "hi")
				return err
			},
			want: ErrNotFound,
		},
		{
			name: "edit unknown comment",
			run: func() error {
				_, _, err := l.EditComment(s, "match-1", "nope", "hi")
				return err
			},
			want: ErrNotFound,
		},
		{
			name: "edit to empty",
			run: func() error {
				_, _, err := l.EditComment(s, "match-1", "nope", "")
				return err
			},
			want: ErrValidation,
		},
		{
			name: "delete unknown comment",
			run: func() error {
				_, _, err := l.DeleteComment(s, "match-1", "nope")
				return err
			},
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
