package request

// SendMessage is the client frame on a scope websocket.
type SendMessage struct {
	Body string `json:"body" binding:"required"`
}
