package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/simulation"
)

func recordRun(t *testing.T, rounds int) ([]simulation.RoundSnapshot, *simulation.Simulation) {
	t.Helper()
	cfg := simulation.DefaultConfig()
	cfg.NumAgents = 20
	cfg.NumRounds = rounds
	cfg.StableRounds = 1000
	cfg.MaxIdleRounds = 1000

	var snaps []simulation.RoundSnapshot
	obs := simulation.ObserverFunc(func(_ context.Context, snap simulation.RoundSnapshot) error {
		snaps = append(snaps, snap)
		return nil
	})
	s, err := simulation.New(cfg, simulation.WithObserver(obs))
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	return snaps, s
}

func newTestModel() *Model {
	m := NewModel(Feed{Rounds: 10}, time.Millisecond)
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 48})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelReplaysSnapshots(t *testing.T) {
	snaps, sim := recordRun(t, 10)
	m := newTestModel()
	for _, snap := range snaps {
		m.Update(roundMsg{snap: snap})
	}

	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, 10, last.Round)
	assert.True(t, last.Done)
	assert.True(t, m.finished)

	for _, side := range []core.Side{core.SideBuy, core.SideSell} {
		want, got := sim.Book().Levels(side, 0), m.Book().Levels(side, 0)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Price, got[i].Price)
		}
	}
	assert.Len(t, m.chartPanel.Candles(), 10)
	assert.Len(t, m.roundsPanel.Entries(), 11)

	out := m.View()
	assert.Contains(t, out, "Orderbook")
	assert.Contains(t, out, "Agents (20)")
	assert.Contains(t, out, "finished")
}

func TestModelPauseAndFocus(t *testing.T) {
	m := newTestModel()
	assert.Equal(t, FocusChart, m.focusedPanel)

	m.Update(keyMsg("tab"))
	assert.Equal(t, FocusRounds, m.focusedPanel)
	m.Update(keyMsg("tab"))
	assert.Equal(t, FocusAgents, m.focusedPanel)

	m.Update(keyMsg("p"))
	assert.True(t, m.Paused())
	assert.Contains(t, m.View(), "paused")

	// a pending pull is ignored while paused
	m.Update(pullMsg{})
	assert.False(t, m.waiting)

	_, cmd := m.Update(keyMsg("p"))
	assert.False(t, m.Paused())
	assert.NotNil(t, cmd)
}

func TestModelPullsFromFeed(t *testing.T) {
	ch := make(chan simulation.RoundSnapshot, 1)
	ch <- simulation.RoundSnapshot{Round: 0, Mechanism: simulation.MechanismLMSR, Price: 0.5}
	m := NewModel(Feed{Snapshots: ch}, time.Millisecond)

	msg := m.waitForRound()()
	rm, ok := msg.(roundMsg)
	require.True(t, ok)
	assert.Equal(t, 0.5, rm.snap.Price)

	close(ch)
	_, ok = m.waitForRound()().(streamClosedMsg)
	assert.True(t, ok)
}

func TestModelShowsOutcome(t *testing.T) {
	m := newTestModel()
	m.Update(doneMsg{Outcome: Outcome{Result: simulation.Result{StopReason: simulation.StopConverged, RoundsRun: 7, FinalPrice: 0.7}}})
	assert.True(t, strings.Contains(m.View(), "converged after 7 rounds"))
}

func TestModelQuit(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
