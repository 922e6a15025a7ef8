package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/himanishpuri/sonicprint/internal/cli"
)

// meterColumns is the number of bars the bands are folded into.
const meterColumns = 16

const meterHeight = 8

var (
	barStyle   = lipgloss.NewStyle().Foreground(cli.PrimaryColor)
	flashStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.AccentColor)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cli.PrimaryColor).
			Padding(0, 1)
)

func renderView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(renderMeters(m.Frame.FFT)))
	b.WriteString("\n")
	b.WriteString(renderStatus(m))
	b.WriteString("\n")
	b.WriteString(renderProgress(m.Frame.Progress, m.Duration, 40))
	b.WriteString("\n\n")
	b.WriteString(cli.KeyStyle.Render("q to quit"))
	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(cli.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.Err)))
	}
	return b.String()
}

func renderHeader(m Model) string {
	title := cli.TitleStyle.UnsetMarginBottom().Render("sonicprint ◉ " + m.Track)

	sub := "no fingerprint loaded"
	if m.Fingerprint != nil {
		sub = fmt.Sprintf("fingerprint %s · %d samples · %d features · hash %d",
			m.FingerprintName, len(m.Fingerprint.Coords), len(m.Fingerprint.Features()), m.Fingerprint.Hash)
	}
	return title + "\n" + cli.KeyStyle.Italic(true).Render(sub)
}

// foldBands averages fft into n columns.
func foldBands(fft []float64, n int) []float64 {
	if len(fft) == 0 || n <= 0 {
		return nil
	}
	n = min(n, len(fft))
	out := make([]float64, n)
	for c := 0; c < n; c++ {
		lo := c * len(fft) / n
		hi := (c + 1) * len(fft) / n
		var sum float64
		for _, v := range fft[lo:hi] {
			sum += v
		}
		out[c] = sum / float64(hi-lo)
	}
	return out
}

func renderMeters(fft []float64) string {
	cols := foldBands(fft, meterColumns)
	if cols == nil {
		return strings.Repeat("\n", meterHeight-1) + cli.KeyStyle.Render("waiting for audio…")
	}

	rows := make([]string, meterHeight)
	for r := 0; r < meterHeight; r++ {
		level := float64(meterHeight-r) / meterHeight
		var line strings.Builder
		for _, v := range cols {
			if v >= level-0.5/meterHeight {
				line.WriteString("██ ")
			} else {
				line.WriteString("   ")
			}
		}
		rows[r] = barStyle.Render(strings.TrimRight(line.String(), " "))
	}
	return strings.Join(rows, "\n")
}

func renderStatus(m Model) string {
	onset := cli.KeyStyle.Render("○")
	if m.flashing() {
		onset = flashStyle.Render("●")
	}
	if !m.Frame.Ready {
		return fmt.Sprintf("%s power  -   avg  -   triggers %d", onset, m.Triggers)
	}
	return fmt.Sprintf("%s power %s  avg %s  peak %.2f  triggers %d",
		onset,
		cli.ValueStyle.Render(fmt.Sprintf("%.2f", m.Frame.Power)),
		cli.ValueStyle.Render(fmt.Sprintf("%5.1f", m.Frame.AvgFrequency)),
		m.PeakPower,
		m.Triggers)
}

func renderProgress(progress float64, total time.Duration, width int) string {
	if progress < 0 {
		return cli.KeyStyle.Render(strings.Repeat("·", width))
	}
	filled := int(progress * float64(width))
	filled = min(width, max(0, filled))
	bar := barStyle.Render(strings.Repeat("━", filled)) + cli.KeyStyle.Render(strings.Repeat("─", width-filled))
	elapsed := time.Duration(progress * float64(total)).Truncate(time.Second)
	return fmt.Sprintf("%s %s / %s", bar, elapsed, total.Truncate(time.Second))
}
