// Package errs defines the shared failure kinds returned across the module.
//
// Call sites wrap these sentinels with context via fmt.Errorf and %w, so
// callers can branch on the kind with errors.Is while still seeing the
// offending values in the message:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
package errs

import "errors"

var (
	// ErrShape reports sample or metadata arrays that disagree in length
	// or rank (ragged sample matrices, 3 positions for 4 channels).
	ErrShape = errors.New("shape mismatch")

	// ErrDomain reports a parameter outside its valid domain (negative
	// sample rate, cutoff beyond Nyquist, eigenvalue count above rank).
	ErrDomain = errors.New("value out of domain")

	// ErrNotFound reports a lookup that matched nothing (unknown channel
	// number or label, missing table column).
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous reports a selector whose parts disagree (a channel
	// number and label that name different channels).
	ErrAmbiguous = errors.New("ambiguous selector")

	// ErrIncompatible reports an operand the operation cannot accept
	// (geometry required but absent, a multi-channel reduction applied
	// to a single channel).
	ErrIncompatible = errors.New("incompatible input")
)
