package domain

import "time"

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient, user-facing status message.
// A zero TTL means the notifier's default lifetime applies.
type Notice struct {
	Level   NoticeLevel   `json:"level"`
	Message string        `json:"message"`
	Detail  string        `json:"detail,omitempty"`
	TTL     time.Duration `json:"-"`
}
