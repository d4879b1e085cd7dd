// Package mqtt mirrors zone state onto an MQTT broker and accepts
// protocol commands from it.
//
// Topics, all under the configured prefix:
//
//	{prefix}/zone/{id}/state     retained audio state of one zone
//	{prefix}/zone/{id}/command   payload is a command path, e.g. "audio/3/pause"
//	{prefix}/system/status       online/offline status and last will
//
// The broker is optional. When mqtt.enabled is false the gateway never
// dials it, and a broker that disappears at runtime only costs the mirror.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeZoneCommands(srv.HandleMQTTCommand)
package mqtt
