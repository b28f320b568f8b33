// Package relay runs the local message relays of the messaging topology.
//
// A relay is a broker subprocess with two listeners. Publishers connect
// to the front port; subscribers connect to the back port (front+1).
// Because both listeners belong to one broker, anything published on the
// front is delivered to matching subscribers on the back.
//
//	publisher ──▶ front:6510 ┐
//	                         ├─ relay "msg"
//	subscriber ◀── back:6511 ┘
//
// Relays are started once, never restarted, and terminated during
// power-down.
package relay
