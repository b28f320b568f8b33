// Package messaging runs the unit's messaging topology.
//
// Two relays are started as supervised broker subprocesses, one for
// operator commands and one for telemetry. Each relay listens on two
// ports: publishers connect to the front port and subscribers to the
// back port, one higher.
//
//	cmd relay:  cmd_port (front)  cmd_port+1 (back)  <- command listener
//	msg relay:  msg_port (front)  msg_port+1 (back)
//	            ^ publisher
//
// Messages travel on MQTT topics "pocs/<CHANNEL>" as JSON objects. String
// messages are wrapped as {"message": ..., "timestamp": ...}.
//
// The command listener turns every message on POCS-CMD into a
// command.Command and puts it on the command queue, where the
// supervisor's dispatcher picks it up.
package messaging
