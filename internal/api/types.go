package api

import "time"

// Notification is the backend's only persisted unit. The same record
// type carries forum alerts and private messages; messaging semantics
// ride inside the Content field (see the codec package).
type Notification struct {
	// ID is assigned by the backend and stable once set.
	ID int64 `json:"id"`

	// UserID is the account the record is attached to. This is the
	// record's owning side, not necessarily its author.
	UserID int64 `json:"userId"`

	// Content is free text, optionally prefixed with a sender tag.
	Content string `json:"content"`

	// IsRead is flipped false→true exactly once via MarkRead.
	IsRead bool `json:"isRead"`

	// CreatedAt is the record creation time.
	CreatedAt time.Time `json:"createdAt"`

	// CreatedAtDisplay is the server-rendered timestamp string. The
	// client treats it as opaque and passes it through to display.
	CreatedAtDisplay string `json:"createdAtFormatted"`
}

// UserProfile is a community member as returned by the user listing.
type UserProfile struct {
	ID        int64  `json:"id"`
	Pseudo    string `json:"pseudo"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// ErrorResponse is the backend's JSON error envelope.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// notificationPage is the paginated feed response.
type notificationPage struct {
	Items []Notification `json:"items"`
	Total int            `json:"total"`
}

// createNotificationRequest is the body of a send.
type createNotificationRequest struct {
	UserID  int64  `json:"userId"`
	Content string `json:"content"`
}
