package exception

import "errors"

var (
	ErrCodecUnknownEvent   = errors.New("codec: unknown event type")
	ErrCodecShortBuffer    = errors.New("codec: short buffer")
	ErrCodecInvalidDecimal = errors.New("codec: invalid decimal")
	ErrCodecFieldTooLarge  = errors.New("codec: field exceeds length prefix")
)
