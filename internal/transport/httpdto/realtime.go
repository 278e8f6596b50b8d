package httpdto

// RealtimeConfigResponse tells clients how to schedule reconnect attempts
// for the websocket channel.
type RealtimeConfigResponse struct {
	ReconnectBaseMs      int `json:"reconnectBaseMs"`
	ReconnectCapMs       int `json:"reconnectCapMs"`
	ReconnectMaxAttempts int `json:"reconnectMaxAttempts"`
}
