package stateserver

import (
	"ImageChat/internal/service/conversation"
	"time"
)

type entryView struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// stateView — JSON-представление снимка переписки для веб-клиента.
type stateView struct {
	Version      uint64      `json:"version"`
	Status       string      `json:"status"`
	Busy         bool        `json:"busy"`
	ImageRef     string      `json:"imageRef,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	Entries      []entryView `json:"entries"`
}

func newStateView(snap conversation.Snapshot) stateView {
	v := stateView{
		Version:      snap.Version,
		Status:       snap.Lifecycle.Status.String(),
		Busy:         snap.Lifecycle.Status == conversation.StatusPending,
		ImageRef:     snap.Lifecycle.ImageRef,
		ErrorMessage: snap.Lifecycle.ErrorMessage,
		Entries:      make([]entryView, 0, len(snap.Entries)),
	}
	for _, e := range snap.Entries {
		v.Entries = append(v.Entries, entryView{ID: e.ID, Sender: string(e.Sender), Text: e.Text, CreatedAt: e.CreatedAt})
	}
	return v
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
