// Package gateway is the outbound REST client for the backend music-control
// API.
//
// Every call is classified into exactly one outcome:
//
//   - success: 2xx response, body decoded into the caller's value
//   - backend error: non-2xx response, returned as *BackendError
//     (errors.Is(err, ErrBackend) reports true)
//   - transport error: connection, timeout or body read failure (ErrTransport)
//   - parse error: a 2xx body that is not the expected JSON (ErrParse)
//
// The zone state machine relies on this split: backend errors roll local
// state back, transport and parse errors do not.
package gateway
