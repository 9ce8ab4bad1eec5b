package session

import "errors"

var (
	// ErrAcquisitionDenied wraps a rejected acquisition. The session stays
	// where it was and the reason is shown as a notice.
	ErrAcquisitionDenied = errors.New("acquisition denied")
	// ErrInvalidSelection is returned for a size or color the item does not offer.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrStateViolation is returned for an intent the current mode does not accept.
	ErrStateViolation = errors.New("state violation")
	// ErrSuperseded is returned to an acquisition that resolved after its
	// session was cancelled or replaced. Its resource has been released.
	ErrSuperseded = errors.New("session superseded")
)
