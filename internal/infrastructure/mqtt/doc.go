// Package mqtt provides the MQTT transport used by the messaging relays.
//
// Each relay is a local broker. The publisher connects to a relay's
// front port and the command listener to the back port of the command
// relay; this package only knows how to connect, publish and subscribe.
//
// This package manages:
//   - Connection with auto-reconnect after the initial connect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions, restored after reconnect
//   - Retained presence messages with a Last Will for crash detection
//
// # Topics
//
//	pocs/<CHANNEL>                 channel messages (STATUS, PANCHAT, POCS, POCS-CMD)
//	pocs/system/status/<client>    retained presence per client
//
// # Usage
//
//	client, err := mqtt.Connect(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishDefault(mqtt.Topics{}.Channel("PANCHAT"), payload)
package mqtt
