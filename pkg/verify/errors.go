package verify

import "errors"

var (
	// ErrLoginTimeout means the post-login URL never matched under the fail policy.
	ErrLoginTimeout = errors.New("login did not complete")

	// ErrAssertion is a failed hard assertion (visible/hidden probes).
	ErrAssertion = errors.New("assertion failed")

	// ErrInvalidScreenshot means the captured bytes are not a usable PNG.
	ErrInvalidScreenshot = errors.New("invalid screenshot")

	// ErrWarnings is returned in strict mode when a run completed with warnings.
	ErrWarnings = errors.New("verification finished with warnings")
)
