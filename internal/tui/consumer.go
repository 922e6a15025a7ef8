package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

// Consumer forwards runtime events into a running program.
type Consumer struct {
	Name string
	Send func(tea.Msg)
}

func (c Consumer) OnFingerprint(d *fingerprint.Derived) {
	c.Send(FingerprintMsg{Name: c.Name, Derived: d})
}

func (c Consumer) OnFrame(f analyser.Frame) {
	c.Send(FrameMsg{Frame: f})
}
