package messaging

import "errors"

// Domain-level errors for message routing and envelopes.
var (
	ErrEmptyContent     = errors.New("messaging: empty message content")
	ErrContentTooLarge  = errors.New("messaging: message content exceeds size limit")
	ErrSelfMessage      = errors.New("messaging: sender and receiver are the same user")
	ErrUnknownSender    = errors.New("messaging: sender does not exist")
	ErrUnknownReceiver  = errors.New("messaging: receiver does not exist")
	ErrUnknownPeer      = errors.New("messaging: counterparty does not exist")
	ErrRateLimited      = errors.New("messaging: sender exceeded the message rate limit")
	ErrMalformedFrame   = errors.New("messaging: malformed envelope")
	ErrUnknownFrameType = errors.New("messaging: unknown envelope type")
)
