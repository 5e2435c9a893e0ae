package main

import (
	"fmt"
	"strings"

	"ranked-ledger/models"
	"ranked-ledger/services"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func renderSession(s models.Session) string {
	var b strings.Builder

	title := s.GameID
	if s.Name != "" {
		title += " · " + s.Name
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s  %s  started %s", s.ID, s.Status, s.StartTime.Format("2006-01-02 15:04"))) + "\n")

	points := fmt.Sprintf("%d → %d (%s)", s.StartPoints, s.CurrentPoints, signed(s.CurrentPoints-s.StartPoints))
	if s.TargetPoints != nil {
		points += fmt.Sprintf("  target %d", *s.TargetPoints)
	}
	b.WriteString(points + "\n")

	if len(s.Matches) == 0 {
		b.WriteString(mutedStyle.Render("no matches yet"))
		return boxStyle.Render(b.String())
	}
	for i, m := range s.Matches {
		line := fmt.Sprintf("%2d. %-6s %s", i+1, m.Result, signed(m.PointsChange))
		if m.Champion != "" {
			line += "  " + m.Champion
		}
		if m.Map != "" {
			line += " @ " + m.Map
		}
		line += mutedStyle.Render("  " + m.ID)
		if len(m.Comments) > 0 {
			line += mutedStyle.Render(fmt.Sprintf("  (%d comment(s))", len(m.Comments)))
		}
		b.WriteString(line)
		if i < len(s.Matches)-1 {
			b.WriteString("\n")
		}
	}
	return boxStyle.Render(b.String())
}

func renderHistory(sessions []models.Session) string {
	if len(sessions) == 0 {
		return mutedStyle.Render("no completed sessions")
	}
	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ended := ""
		if s.EndTime != nil {
			ended = s.EndTime.Format("2006-01-02 15:04")
		}
		lines = append(lines, fmt.Sprintf("%s  %-16s %3d games  %s  %s",
			ended, s.GameID, len(s.Matches), signed(s.CurrentPoints-s.StartPoints), mutedStyle.Render(s.ID)))
	}
	return strings.Join(lines, "\n")
}

func renderSummary(sum services.SessionSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Summary "+sum.SessionID) + "\n")
	b.WriteString(fmt.Sprintf("games %d  W %d  L %d  D %d  remakes %d\n", sum.Games, sum.Wins, sum.Losses, sum.Draws, sum.Remakes))
	b.WriteString(fmt.Sprintf("win rate %.1f%%  net %s  now %d\n", sum.WinRate, signed(sum.NetPoints), sum.CurrentPoints))
	b.WriteString(fmt.Sprintf("best %s  worst %s", signed(sum.BestGain), signed(sum.WorstLoss)))
	if sum.PointsToTarget != nil {
		if sum.TargetReached {
			b.WriteString("\n" + okStyle.Render("target reached"))
		} else {
			b.WriteString(fmt.Sprintf("\n%d to target", *sum.PointsToTarget))
		}
	}
	return boxStyle.Render(b.String())
}

func signed(n int) string {
	s := fmt.Sprintf("%+d", n)
	switch {
	case n > 0:
		return gainStyle.Render(s)
	case n < 0:
		return lossStyle.Render(s)
	}
	return s
}
