package occupancy

import (
	"errors"

	"washroom-tracker-client/internal/apiclient"
)

// NoticeKind classifies a user-facing notice.
type NoticeKind string

const (
	NoticeInfo           NoticeKind = "info"
	NoticeError          NoticeKind = "error"
	NoticeSessionExpired NoticeKind = "session_expired"
)

// Notice is a transient message for the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

var (
	noticeWaitlisted = Notice{
		Kind:    NoticeInfo,
		Title:   "Added to Waitlist",
		Message: "You will be notified when this toilet becomes available.",
	}
	noticeExtended = Notice{
		Kind:    NoticeInfo,
		Title:   "Success",
		Message: "Time extended successfully",
	}
	noticeExpired = Notice{
		Kind:    NoticeSessionExpired,
		Title:   "Session Expired",
		Message: "Please log in again.",
	}
)

// failureNotice describes a failed operation. op is used when err carries none.
func failureNotice(op string, err error) Notice {
	var rf *apiclient.RequestFailedError
	if errors.As(err, &rf) {
		op = rf.Operation
	}
	msg := "Failed to " + op
	if errors.Is(err, apiclient.ErrTransportUnavailable) {
		msg += " (backend unreachable)"
	}
	return Notice{Kind: NoticeError, Title: "Error", Message: msg}
}
