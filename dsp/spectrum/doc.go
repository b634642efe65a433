// Package spectrum provides frequency-domain analysis over sampled signals.
//
// It computes single-sided amplitude spectra and Welch power spectral
// density estimates, plus magnitude and power helpers over complex bins.
// Transforms run on a radix-2 FFT for power-of-two lengths and fall back
// to a mixed-radix real FFT otherwise, so bin frequencies are exact for
// any input length.
package spectrum
