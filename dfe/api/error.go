package api

import "fmt"

// RequestError is a transport-level failure: a network error or a
// non-success HTTP status from the service.
type RequestError struct {
	StatusCode int
	Err        error
	Body       string
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status: %d err: %v message: %s", r.StatusCode, r.Err, r.Body)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

// ProtocolError is a top-level rejection from the service itself: the
// envelope parsed, but the status code is neither "documents found" nor
// "no more documents".
type ProtocolError struct {
	CStat  int
	Motivo string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("SEFAZ rejected the request: cStat %d - %s", e.CStat, e.Motivo)
}
