package exception

import "errors"

var (
	ErrGatewayEmptyPath     = errors.New("gateway: empty socket path")
	ErrGatewayNilRunner     = errors.New("gateway: nil runner")
	ErrGatewayFrameTooLarge = errors.New("gateway: frame too large")
	ErrGatewayUnknownOp     = errors.New("gateway: unknown op")
	ErrGatewayPathNotSocket = errors.New("gateway: path exists and is not a socket")
)
