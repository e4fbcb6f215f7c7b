// Package supervisor keeps the device connected to the control server.
//
// Run loops forever: obtain a token, dial the websocket, serve the session
// until it ends, back off, repeat. A session is two tasks sharing one
// connection:
//
//   - inbound reads frames, turns them into protocol commands and handles
//     each command in its own goroutine; ping frames feed the idle watchdog
//   - outbound sends a status and light snapshot, then forwards every light
//     change from the event bus
//
// When either task stops, the session is closed and the loop reconnects.
// Write failures end the session only; the process keeps running.
package supervisor
