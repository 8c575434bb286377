package observability

import "time"

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// WSEventPayload is the payload shape of websocket lifecycle events
// (ws_connect, ws_disconnect, ws_error) published to the event exchange.
func WSEventPayload(chatID int, event, connID string, userID int, deviceID, ip string, duration time.Duration, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"resource_id": chatID,
			"event":       event,
			"conn_id":     connID,
			"duration_ms": duration.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   userID,
			"device_id": deviceID,
			"ip":        ip,
		},
	}
}
