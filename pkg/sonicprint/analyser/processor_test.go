package analyser

import (
	"testing"
	"time"
)

const tick = time.Second / 60

func constantBins(n int, v uint8) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func newTestProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p, err := NewProcessor(cfg)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

func assertNotReady(t *testing.T, f Frame) {
	t.Helper()
	if f.Ready || f.Trigger {
		t.Fatalf("expected not-ready frame, got ready=%v trigger=%v", f.Ready, f.Trigger)
	}
	if f.Power != NotReady || f.AvgFrequency != NotReady || f.Progress != NotReady {
		t.Fatalf("expected sentinel values, got %+v", f)
	}
	if f.FFT != nil || f.RawFFT != nil {
		t.Fatalf("expected nil slices on not-ready frame")
	}
}

func TestNoNewDataContract(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	assertNotReady(t, p.Frame(tick))
	assertNotReady(t, p.Frame(tick))

	p.Sample(constantBins(64, 100))
	if f := p.Frame(tick); !f.Ready {
		t.Fatal("expected ready frame after a sample")
	}
	assertNotReady(t, p.Frame(tick))
	assertNotReady(t, p.Frame(tick))
}

func TestPeakHoldBetweenTicks(t *testing.T) {
	p := newTestProcessor(t, Config{FFTSize: 4, NormalizeRate: 1, TriggerThreshold: 0.5})

	p.Sample([]uint8{10, 200, 0, 7})
	p.Sample([]uint8{30, 100, 5, 7})
	p.Sample([]uint8{20, 150, 1})

	f := p.Frame(tick)
	want := []float64{30, 200, 5, 7}
	for i, w := range want {
		if f.RawFFT[i] != w {
			t.Errorf("raw[%d] = %v, want %v", i, f.RawFFT[i], w)
		}
	}
	if f.AvgFrequency != (30+200+5+7)/4.0 {
		t.Errorf("avg frequency = %v", f.AvgFrequency)
	}

	// accumulator was cleared by the previous frame
	p.Sample([]uint8{1, 1, 1, 1})
	f = p.Frame(tick)
	for i, v := range f.RawFFT {
		if v != 1 {
			t.Errorf("raw[%d] = %v after reset, want 1", i, v)
		}
	}
}

func TestSteadyStateConvergence(t *testing.T) {
	cfg := Config{FFTSize: 64, NormalizeRate: 60, TriggerThreshold: 0.9}
	fresh := newTestProcessor(t, cfg)
	primed := newTestProcessor(t, cfg)

	// drive one processor through a loud passage first
	for i := 0; i < 30; i++ {
		primed.Sample(constantBins(64, 255))
		primed.Frame(tick)
	}

	var a, b Frame
	for i := 0; i < 400; i++ {
		fresh.Sample(constantBins(64, 128))
		primed.Sample(constantBins(64, 128))
		a = fresh.Frame(tick)
		b = primed.Frame(tick)
	}

	for i := range a.FFT {
		if a.FFT[i] <= 0 || a.FFT[i] >= 1 {
			t.Fatalf("fft[%d] = %v, want within (0,1)", i, a.FFT[i])
		}
		if diff := a.FFT[i] - b.FFT[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("fft[%d] depends on history: %v vs %v", i, a.FFT[i], b.FFT[i])
		}
		if a.MinEnvelope[i] > 128 || a.MaxEnvelope[i] < 128 {
			t.Fatalf("envelope [%v,%v] does not bracket the input", a.MinEnvelope[i], a.MaxEnvelope[i])
		}
	}
	if d := a.FFT[0] - 0.5; d > 1e-9 || d < -1e-9 {
		t.Errorf("fft[0] = %v, want 0.5", a.FFT[0])
	}
}

func TestTriggerFiresOncePerExcursion(t *testing.T) {
	p := newTestProcessor(t, Config{FFTSize: 8, NormalizeRate: 60, TriggerThreshold: 0.8})

	run := func(level uint8, ticks int) (triggers int, last Frame) {
		for i := 0; i < ticks; i++ {
			p.Sample(constantBins(8, level))
			last = p.Frame(tick)
			if last.Trigger {
				triggers++
			}
		}
		return triggers, last
	}

	if n, _ := run(50, 100); n != 0 {
		t.Fatalf("quiet passage fired %d triggers", n)
	}
	n, last := run(200, 20)
	if n != 1 {
		t.Fatalf("first excursion fired %d triggers, want 1", n)
	}
	if last.Power <= 0.8 {
		t.Fatalf("power fell below threshold during excursion: %v", last.Power)
	}
	if n, last := run(50, 5); n != 0 || last.Power >= 0.8 {
		t.Fatalf("drop fired %d triggers, power %v", n, last.Power)
	}
	if n, _ := run(200, 20); n != 1 {
		t.Fatalf("second excursion fired %d triggers, want 1", n)
	}
}

func TestNotReadyTickKeepsLatch(t *testing.T) {
	p := newTestProcessor(t, Config{FFTSize: 8, NormalizeRate: 60, TriggerThreshold: 0.8})
	for i := 0; i < 10; i++ {
		p.Sample(constantBins(8, 50))
		p.Frame(tick)
	}
	p.Sample(constantBins(8, 200))
	if !p.Frame(tick).Trigger {
		t.Fatal("expected trigger on rise")
	}
	p.Frame(tick) // no data
	p.Sample(constantBins(8, 200))
	if p.Frame(tick).Trigger {
		t.Fatal("latch must survive a tick without data")
	}
}

type fakeClock struct {
	pos, dur time.Duration
}

func (c fakeClock) Position() time.Duration { return c.pos }
func (c fakeClock) Duration() time.Duration { return c.dur }

func TestProgress(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	p.Sample(constantBins(64, 10))
	if f := p.Frame(tick); f.Progress != NotReady {
		t.Errorf("progress without clock = %v", f.Progress)
	}

	p.SetClock(fakeClock{pos: 30 * time.Second, dur: 120 * time.Second})
	p.Sample(constantBins(64, 10))
	if f := p.Frame(tick); f.Progress != 0.25 {
		t.Errorf("progress = %v, want 0.25", f.Progress)
	}

	p.SetClock(fakeClock{pos: time.Second})
	p.Sample(constantBins(64, 10))
	if f := p.Frame(tick); f.Progress != NotReady {
		t.Errorf("progress with unknown duration = %v", f.Progress)
	}
}

func TestResetClearsState(t *testing.T) {
	p := newTestProcessor(t, Config{FFTSize: 2, NormalizeRate: 1, TriggerThreshold: 0.1})
	p.Sample([]uint8{255, 255})
	p.Reset()
	assertNotReady(t, p.Frame(tick))

	p.Sample([]uint8{0, 0})
	f := p.Frame(tick)
	if f.MaxEnvelope[0] != envelopeFloor || f.MinEnvelope[0] != 0 {
		t.Errorf("envelopes not reset: max=%v min=%v", f.MaxEnvelope[0], f.MinEnvelope[0])
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{FFTSize: 0, NormalizeRate: 1, TriggerThreshold: 0.5},
		{FFTSize: 64, NormalizeRate: -1, TriggerThreshold: 0.5},
		{FFTSize: 64, NormalizeRate: 1, TriggerThreshold: 1.5},
	}
	for _, c := range bad {
		if _, err := NewProcessor(c); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}
