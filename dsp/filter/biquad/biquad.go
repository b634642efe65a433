// Package biquad runs cascades of second-order IIR sections, the
// filtering runtime behind the field-buffer bandpass, notch and drift
// removal. Coefficient design lives in dsp/filter/design.
package biquad

// Coefficients of one second-order section, normalized so the leading
// denominator term a0 is 1 and not stored.
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Section is a single biquad with its delay line, evaluated in
// transposed direct form II.
type Section struct {
	Coefficients

	s1, s2 float64
}

// NewSection returns a section with a cleared delay line.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.s1
	s.s1 = s.B1*x + s.s2 - s.A1*y
	s.s2 = s.B2*x - s.A2*y
	return y
}

// ProcessBlock filters buf in place.
func (s *Section) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = s.ProcessSample(x)
	}
}

// Reset clears the delay line.
func (s *Section) Reset() {
	s.s1, s.s2 = 0, 0
}

// State returns the two delay-line registers.
func (s *Section) State() (s1, s2 float64) {
	return s.s1, s.s2
}

// SetState restores delay-line registers captured by State, resuming
// an interrupted run mid-stream.
func (s *Section) SetState(s1, s2 float64) {
	s.s1, s.s2 = s1, s2
}

// Chain cascades sections in series; section i feeds section i+1.
type Chain struct {
	sections []Section
}

// NewChain builds a cascade, one section per coefficient set. An empty
// chain passes samples through unchanged.
func NewChain(coeffs []Coefficients) *Chain {
	ch := &Chain{sections: make([]Section, len(coeffs))}
	for i, c := range coeffs {
		ch.sections[i].Coefficients = c
	}
	return ch
}

// ProcessSample filters one sample through every section.
func (c *Chain) ProcessSample(x float64) float64 {
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}
	return x
}

// ProcessBlock filters buf in place through every section.
func (c *Chain) ProcessBlock(buf []float64) {
	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// Reset clears every section's delay line.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// Order returns the filter order of the cascade: per section the larger
// of its numerator and denominator degree, summed.
func (c *Chain) Order() int {
	order := 0
	for i := range c.sections {
		order += c.sections[i].degree()
	}
	return order
}

func (c Coefficients) degree() int {
	switch {
	case c.A2 != 0 || c.B2 != 0:
		return 2
	case c.A1 != 0 || c.B1 != 0:
		return 1
	default:
		return 0
	}
}
