package services

import (
	"errors"
	"testing"

	"ranked-ledger/models"
)

func newTestLedger() *Ledger {
	return NewLedgerWith(newTestClock().Now, seqIDs("m"))
}

func TestAddMatchKeepsPointsInvariant(t *testing.T) {
	tests := []struct {
		name   string
		start  int
		deltas []int
		want   int
	}{
		{name: "no matches", start: 1000, deltas: nil, want: 1000},
		{name: "single win", start: 1000, deltas: []int{18}, want: 1018},
		{name: "mixed", start: 1000, deltas: []int{18, -15, 20, 0, -13}, want: 1010},
		{name: "negative start", start: -5, deltas: []int{-10, 3}, want: -12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger()
			s := activeSession(tt.start)
			for _, d := range tt.deltas {
				var err error
				s, err = l.AddMatch(s, win(d))
				if err != nil {
					t.Fatalf("add match %d: %v", d, err)
				}
				if err := CheckInvariant(s); err != nil {
					t.Fatalf("invariant broken after %d: %v", d, err)
				}
			}
			if s.CurrentPoints != tt.want {
				t.Fatalf("expected %d points, got %d", tt.want, s.CurrentPoints)
			}
			if len(s.Matches) != len(tt.deltas) {
				t.Fatalf("expected %d matches, got %d", len(tt.deltas), len(s.Matches))
			}
		})
	}
}

func TestAddMatchAssignsIDAndTimestamp(t *testing.T) {
	l := newTestLedger()
	s, err := l.AddMatch(activeSession(100), models.MatchInput{
		Result:       models.ResultLoss,
		PointsChange: -12,
		Champion:     "  Jett ",
		Map:          "Ascent",
		Kills:        14,
		Deaths:       17,
		Assists:      3,
		Score:        "11-13",
	})
	if err != nil {
		t.Fatalf("add match: %v", err)
	}

	m := s.Matches[0]
	if m.ID == "" {
		t.Fatal("expected an id")
	}
	if m.Timestamp.IsZero() {
		t.Fatal("expected a timestamp")
	}
	if m.Champion != "Jett" {
		t.Fatalf("expected trimmed champion, got %q", m.Champion)
	}
	if m.Comments == nil || len(m.Comments) != 0 {
		t.Fatalf("expected an empty comment list, got %#v", m.Comments)
	}
}

func TestDeleteMatchRevertsExactDelta(t *testing.T) {
	l := newTestLedger()
	s := activeSession(50)

	s, err := l.AddMatch(s, win(20))
	if err != nil {
		t.Fatalf("add match: %v", err)
	}
	if s.CurrentPoints != 70 {
		t.Fatalf("expected 70 points, got %d", s.CurrentPoints)
	}

	s, err = l.DeleteMatch(s, s.Matches[0].ID)
	if err != nil {
		t.Fatalf("delete match: %v", err)
	}
	if s.CurrentPoints != 50 {
		t.Fatalf("expected 50 points after delete, got %d", s.CurrentPoints)
	}
	if len(s.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(s.Matches))
	}
}

func TestDeleteMatchKeepsOrderOfOthers(t *testing.T) {
	l := newTestLedger()
	s := activeSession(0, 5, 10, 15)

	s, err := l.DeleteMatch(s, "match-2")
	if err != nil {
		t.Fatalf("delete match: %v", err)
	}
	if s.CurrentPoints != 20 {
		t.Fatalf("expected 20 points, got %d", s.CurrentPoints)
	}
	if s.Matches[0].ID != "match-1" || s.Matches[1].ID != "match-3" {
		t.Fatalf("unexpected order %s, %s", s.Matches[0].ID, s.Matches[1].ID)
	}
}

func TestUpdateMatchAppliesDifference(t *testing.T) {
	l := newTestLedger()
	s := activeSession(1000, 20, -10)

	res := models.ResultLoss
	s, err := l.UpdateMatch(s, "match-1", models.MatchPatch{
		PointsChange: intPtr(-18),
		Result:       &res,
	})
	if err != nil {
		t.Fatalf("update match: %v", err)
	}
	if s.CurrentPoints != 1000-18-10 {
		t.Fatalf("expected %d points, got %d", 1000-18-10, s.CurrentPoints)
	}
	if s.Matches[0].Result != models.ResultLoss {
		t.Fatalf("expected LOSS, got %s", s.Matches[0].Result)
	}
	if err := CheckInvariant(s); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestUpdateMatchWithoutPointsLeavesTotal(t *testing.T) {
	l := newTestLedger()
	s := activeSession(10, 5)
	champ := "Sage"

	s, err := l.UpdateMatch(s, "match-1", models.MatchPatch{Champion: &champ})
	if err != nil {
		t.Fatalf("update match: %v", err)
	}
	if s.CurrentPoints != 15 {
		t.Fatalf("expected 15 points, got %d", s.CurrentPoints)
	}
	if s.Matches[0].Champion != "Sage" {
		t.Fatalf("expected champion to change, got %q", s.Matches[0].Champion)
	}
}

func TestLedgerDoesNotModifyInput(t *testing.T) {
	l := newTestLedger()
	s := activeSession(100, 10)

	if _, err := l.AddMatch(s, win(5)); err != nil {
		t.Fatalf("add match: %v", err)
	}
	if _, err := l.UpdateMatch(s, "match-1", models.MatchPatch{PointsChange: intPtr(1)}); err != nil {
		t.Fatalf("update match: %v", err)
	}
	if _, err := l.DeleteMatch(s, "match-1"); err != nil {
		t.Fatalf("delete match: %v", err)
	}

	if s.CurrentPoints != 110 || len(s.Matches) != 1 || s.Matches[0].PointsChange != 10 {
		t.Fatalf("input session was modified: %+v", s)
	}
}

func TestMatchEditsRequireActiveSession(t *testing.T) {
	l := newTestLedger()
	s := activeSession(100, 10)
	s.Status = models.SessionStatusCompleted

	_, errAdd := l.AddMatch(s, win(5))
	_, errUpdate := l.UpdateMatch(s, "match-1", models.MatchPatch{PointsChange: intPtr(1)})
	_, errDelete := l.DeleteMatch(s, "match-1")

	for name, err := range map[string]error{"add": errAdd, "update": errUpdate, "delete": errDelete} {
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("%s: expected invalid state, got %v", name, err)
		}
	}
}

func TestMatchValidation(t *testing.T) {
	tests := []struct {
		name string
		in   models.MatchInput
	}{
		{name: "unknown result", in: models.MatchInput{Result: "VICTORY", PointsChange: 10}},
		{name: "empty result", in: models.MatchInput{PointsChange: 10}},
		{name: "negative kills", in: models.MatchInput{Result: models.ResultWin, Kills: -1}},
		{name: "negative deaths", in: models.MatchInput{Result: models.ResultWin, Deaths: -2}},
		{name: "negative assists", in: models.MatchInput{Result: models.ResultWin, Assists: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLedger().AddMatch(activeSession(0), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUnknownMatch(t *testing.T) {
	l := newTestLedger()
	s := activeSession(0, 1)

	if _, err := l.UpdateMatch(s, "nope", models.MatchPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if _, err := l.DeleteMatch(s, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
	if _, err := l.FindMatch(s, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find: expected not found, got %v", err)
	}
}

func TestCheckInvariantReportsDrift(t *testing.T) {
	s := activeSession(100, 10, -5)
	if err := CheckInvariant(s); err != nil {
		t.Fatalf("expected consistent session, got %v", err)
	}

	s.CurrentPoints = 200
	err := CheckInvariant(s)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if KindOf(err) != KindInvariant {
		t.Fatalf("expected kind %s, got %s", KindInvariant, KindOf(err))
	}
}

func TestAddMatchRefusesDriftedSession(t *testing.T) {
	s := activeSession(100, 10)
	s.CurrentPoints = 90

	if _, err := newTestLedger().AddMatch(s, win(5)); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}
