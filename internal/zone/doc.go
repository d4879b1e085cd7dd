// Package zone implements the per-zone player state machine.
//
// Each Zone keeps a local, optimistic copy of the backend's player state.
// A command is applied locally first (so the controller sees an immediate
// reaction), then sent to the backend, then reconciled:
//
//   - success: the backend's track and player replace local state
//   - backend error: the pre-command snapshot is restored verbatim
//   - transport or parse error: no rollback; the zone settles to the mode
//     the command most likely produced (see the fallback table in zone.go)
//
// While a zone is not stopped it polls the backend state periodically to
// pick up changes made by other controllers.
//
// State-changed and favorite-changed notifications are coalesced per zone
// through a debouncer; queue-changed notifications are sent immediately.
package zone
