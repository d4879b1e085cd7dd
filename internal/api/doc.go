// Package api serves the controller-facing protocol: every HTTP path is a
// command, and every WebSocket text frame is a command whose reply is sent
// back on the same socket. The same socket carries the push events.
//
// # Architecture
//
//	controller --HTTP/WS--> Server.Dispatch --> zone.Zone / musiclist.List --> gateway.Client
//	                              |
//	zone.Notifier <---------------+--> Hub (audio_event, audio_queue_event, roomfav_event)
//	                                   mirror (MQTT state topic, InfluxDB zone_playback)
//
// Replies are envelopes of the form
//
//	{
//	  "<operation>_result": <payload>,
//	  "command": "<command path>"
//	}
//
// A command that does not match the route table, addresses a zone that does
// not exist, or carries an undecodable item token is answered with a null
// payload and status 200; the controller does not expect errors. Only
// internal failures produce a 500.
//
// Besides the protocol, the server exposes /api/v1/health, /api/v1/metrics
// and /api/v1/commands (the command journal) as JSON.
package api
