// Package tui renders live audio-reactive meters in the terminal.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

// triggerFlash is how long the onset indicator stays lit.
const triggerFlash = 150 * time.Millisecond

type Model struct {
	Track    string
	Duration time.Duration

	FingerprintName string
	Fingerprint     *fingerprint.Derived

	Frame       analyser.Frame
	Frames      int
	Triggers    int
	LastTrigger time.Time
	PeakPower   float64

	Width  int
	Height int
	Done   bool
	Err    error

	now func() time.Time
}

func NewModel(track string, duration time.Duration) Model {
	return Model{
		Track:    track,
		Duration: duration,
		Width:    80,
		now:      time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case FingerprintMsg:
		m.FingerprintName = msg.Name
		m.Fingerprint = msg.Derived

	case FrameMsg:
		if !msg.Frame.Ready {
			return m, nil
		}
		m.Frame = msg.Frame
		m.Frames++
		m.PeakPower = max(m.PeakPower, msg.Frame.Power)
		if msg.Frame.Trigger {
			m.Triggers++
			m.LastTrigger = m.clock()
		}

	case DoneMsg:
		m.Done = true
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	return renderView(m)
}

func (m Model) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// flashing reports whether the onset indicator is lit.
func (m Model) flashing() bool {
	return !m.LastTrigger.IsZero() && m.clock().Sub(m.LastTrigger) < triggerFlash
}
