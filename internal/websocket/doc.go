// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

/*
Package websocket is the real-time edge of Wayfarer: the connection
registry, the per-socket pumps and the gateway that authenticates sockets
and dispatches their frames.

Key Components:

  - Registry: userID -> set of live connections. Implements Sender, which
    is all the chat, presence and notification services see.
  - Client: one socket with a buffered send channel drained by writePump.
  - Gateway: http.Handler for GET /api/v1/ws.

Connection lifecycle:

	CONNECTING     token from ?token= or Authorization: Bearer
	    |          invalid -> close 1008, never registered
	AUTHENTICATED  Registry.AddConnection, presence online, CONNECTED frame
	    |
	OPEN           frames dispatched by type, one at a time per socket
	    |
	CLOSED         Registry.RemoveConnection; last one -> presence offline

Frames are {type, payload} JSON objects:

	inbound:  HEARTBEAT, CHAT_MESSAGE, CHAT_TYPING, CHAT_STOP_TYPING, CHAT_READ
	outbound: CONNECTED, ERROR, HEARTBEAT_ACK, CHAT_MESSAGE, CHAT_TYPING,
	          CHAT_STOP_TYPING, CHAT_READ, CHAT_PARTICIPANT_ADDED,
	          CHAT_PARTICIPANT_LEFT, NOTIFICATION, PRESENCE_ONLINE,
	          PRESENCE_OFFLINE

Unknown inbound types are logged at debug and dropped. Failures produce an
ERROR {message, code} frame on the originating connection only; code is a
models.ErrorKind, RATE_LIMITED or INVALID_FRAME.

Delivery:

SendToUser never blocks. Each connection has a bounded buffer; a full
buffer means that connection did not accept the frame and the drop is
counted in websocket_dropped_sends_total. Socket writes happen only on the
connection's writePump goroutine.

Keepalive:

Registry.RunWithContext pings every connection each ping interval. The read
deadline is pong_wait; a peer that stops answering fails its read and takes
the CLOSED path.

Limitations:

The registry is process-local. Running more than one instance requires an
external fan-out behind Sender.
*/
package websocket
