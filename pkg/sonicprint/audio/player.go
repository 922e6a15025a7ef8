package audio

import (
	"sync"
	"time"
)

// Player is a wall-clock driven playhead over a Track. It does not emit
// sound; it tells the analyser which samples are "playing" now. Player
// satisfies analyser.SampleWindow and analyser.PlaybackClock.
type Player struct {
	track *Track
	now   func() time.Time

	mu      sync.Mutex
	playing bool
	started time.Time
	offset  time.Duration
}

func NewPlayer(t *Track) *Player {
	return &Player{track: t, now: time.Now}
}

func (p *Player) Track() *Track {
	return p.track
}

func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	if p.offset >= p.track.Duration() {
		p.offset = 0
	}
	p.playing = true
	p.started = p.now()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.offset = p.positionLocked()
	p.playing = false
}

func (p *Player) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = min(max(0, pos), p.track.Duration())
	p.started = p.now()
}

// Playing reports whether the playhead is moving. Reaching the end of the
// track stops playback.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playingLocked()
}

func (p *Player) playingLocked() bool {
	if p.playing && p.positionLocked() >= p.track.Duration() {
		p.offset = p.track.Duration()
		p.playing = false
	}
	return p.playing
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() time.Duration {
	pos := p.offset
	if p.playing {
		pos += p.now().Sub(p.started)
	}
	return min(pos, p.track.Duration())
}

func (p *Player) Duration() time.Duration {
	return p.track.Duration()
}

// Window fills dst with the samples ending at the playhead. It reports false
// while paused or after the end of the track.
func (p *Player) Window(dst []float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playingLocked() {
		return false
	}
	p.track.WindowAt(dst, p.track.Index(p.positionLocked()))
	return true
}
