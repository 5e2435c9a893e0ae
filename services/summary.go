package services

import (
	"math"

	"ranked-ledger/models"
)

// SessionSummary is the aggregate shown on a session screen.
type SessionSummary struct {
	SessionID     string  `json:"sessionId"`
	Games         int     `json:"games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	Remakes       int     `json:"remakes"`
	WinRate       float64 `json:"winRate"` // percent, remakes excluded
	NetPoints     int     `json:"netPoints"`
	CurrentPoints int     `json:"currentPoints"`
	BestGain      int     `json:"bestGain"`
	WorstLoss     int     `json:"worstLoss"`
	// Target fields are only set when the session has a target.
	PointsToTarget *int `json:"pointsToTarget,omitempty"`
	TargetReached  bool `json:"targetReached"`
}

// Summarize aggregates a session's matches.
func Summarize(s models.Session) SessionSummary {
	sum := SessionSummary{
		SessionID:     s.ID,
		Games:         len(s.Matches),
		NetPoints:     s.CurrentPoints - s.StartPoints,
		CurrentPoints: s.CurrentPoints,
	}
	for _, m := range s.Matches {
		switch m.Result {
		case models.ResultWin:
			sum.Wins++
		case models.ResultLoss:
			sum.Losses++
		case models.ResultDraw:
			sum.Draws++
		case models.ResultRemake:
			sum.Remakes++
		}
		if m.PointsChange > sum.BestGain {
			sum.BestGain = m.PointsChange
		}
		if m.PointsChange < sum.WorstLoss {
			sum.WorstLoss = m.PointsChange
		}
	}

	if decided := sum.Wins + sum.Losses + sum.Draws; decided > 0 {
		rate := float64(sum.Wins) / float64(decided) * 100
		sum.WinRate = math.Round(rate*10) / 10
	}

	if s.TargetPoints != nil {
		remaining := *s.TargetPoints - s.CurrentPoints
		if remaining <= 0 {
			sum.TargetReached = true
			remaining = 0
		}
		sum.PointsToTarget = &remaining
	}
	return sum
}
