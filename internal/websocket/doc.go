// Package websocket pushes run progress to browser clients.
//
// A Hub fans JSON messages out to every connected Client. Messages are
// wrapped in a Message envelope carrying a type such as "run:snapshot".
// Clients are read-only subscribers: anything they send is treated as a
// heartbeat.
package websocket
