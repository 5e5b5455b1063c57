package chain

import "fmt"

// ErrRPCUnavailable reports that the RPC endpoint could not produce a
// usable response: transport failure, non-2xx status, or a body that is
// not JSON (reverse proxies tend to answer with plain text).
type ErrRPCUnavailable struct {
	Endpoint string
	Status   int
	Body     string
	Cause    error
}

func (e *ErrRPCUnavailable) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("rpc %s unavailable: %v", e.Endpoint, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("rpc %s returned status %d: %s", e.Endpoint, e.Status, e.Body)
	default:
		return fmt.Sprintf("rpc %s returned a non-JSON response: %s", e.Endpoint, e.Body)
	}
}

func (e *ErrRPCUnavailable) Unwrap() error { return e.Cause }

// ErrRPC is a structured error returned by the RPC node itself.
type ErrRPC struct {
	Code    int
	Message string
}

func (e *ErrRPC) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
