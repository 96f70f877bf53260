package sensor

// Sim is a deterministic synthetic source for desktop runs and tests:
// a slow triangle wave per channel, phase-shifted so the channels are
// distinguishable on a dashboard.
type Sim struct {
	step uint64
}

// NewSim creates a simulated source
func NewSim() *Sim {
	return &Sim{}
}

func triangle(x uint64) uint16 {
	period := uint64(2048)
	pos := x % period
	if pos < period/2 {
		return uint16(pos * 2)
	}
	return uint16((period - pos) * 2)
}

// ReadSample always yields the next synthetic sample
func (s *Sim) ReadSample() (Sample, bool) {
	sample := Sample{MonoMS: s.step * 10}
	for ch := range sample.Channels {
		sample.Channels[ch] = triangle(s.step + uint64(ch)*256)
	}
	s.step++
	return sample, true
}
