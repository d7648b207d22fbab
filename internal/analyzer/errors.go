package analyzer

import "errors"

// Sentinel errors for analysis failures. Every failure of the collaborator
// call wraps exactly one of ErrTransport or ErrMalformedResponse.
var (
	ErrTransport         = errors.New("analysis transport error")
	ErrMalformedResponse = errors.New("malformed analysis response")

	ErrSuperseded        = errors.New("submission superseded by a newer one")
	ErrUnknownSubmission = errors.New("unknown submission")
)
