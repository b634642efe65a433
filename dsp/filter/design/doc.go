// Package design provides digital IIR filter coefficient designers.
//
// The functions in this package produce biquad coefficients consumable by
// dsp/filter/biquad for runtime processing. It includes RBJ-style single
// section designers (Lowpass, Highpass, Bandpass, Notch) and Butterworth
// cascade designers (ButterworthLP, ButterworthHP, ButterworthBand)
// returning slices of sections for biquad.NewChain.
package design
