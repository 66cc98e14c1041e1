package rpcapi

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type RegisterResponse struct {
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type InboxRequest struct{}

type Message struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Content string    `json:"content,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

type InboxResponse struct {
	Messages []*Message `json:"messages"`
}

type GetMessageRequest struct {
	ID string `json:"id"`
}

type GetMessageResponse struct {
	Message *Message `json:"message"`
}

type SendRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type SendResponse struct {
	ID     string    `json:"id"`
	SentAt time.Time `json:"sent_at"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
