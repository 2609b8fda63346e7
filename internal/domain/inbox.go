package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DraftStatus represents the confirmation state of an action draft.
type DraftStatus string

// Possible draft status values
const (
	DraftStatusDraft     DraftStatus = "draft"
	DraftStatusConfirmed DraftStatus = "confirmed"
	DraftStatusDiscarded DraftStatus = "discarded"
	DraftStatusExpired   DraftStatus = "expired"
)

// Common validation errors for inbox records
var (
	ErrEmptyInboxID      = errors.New("inbox item ID cannot be empty")
	ErrEmptyInboxUserID  = errors.New("inbox item user ID cannot be empty")
	ErrEmptyInboxMessage = errors.New("inbox item message cannot be empty")
	ErrEmptyDraftID      = errors.New("draft ID cannot be empty")
	ErrInvalidDraft      = errors.New("invalid draft status")
)

// InboxItem is a raw captured message. Items age out via the retention
// compactor unless a task or pending draft still references them.
type InboxItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ChatID      string    `json:"chat_id"`
	Source      string    `json:"source"`
	ClientMsgID string    `json:"client_msg_id,omitempty"`
	MessageRaw  string    `json:"message_raw"`
	MessageNorm string    `json:"message_norm"`
	ReceivedAt  time.Time `json:"received_at"`
}

// NewInboxItem creates an InboxItem with a generated ID, stamped now.
func NewInboxItem(userID, chatID, source, message string) (*InboxItem, error) {
	item := &InboxItem{
		ID:          uuid.New().String(),
		UserID:      userID,
		ChatID:      chatID,
		Source:      source,
		MessageRaw:  message,
		MessageNorm: NormalizeTitle(message),
		ReceivedAt:  time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the InboxItem has valid data.
func (i *InboxItem) Validate() error {
	if i.ID == "" {
		return ErrEmptyInboxID
	}

	if i.UserID == "" {
		return ErrEmptyInboxUserID
	}

	if i.MessageRaw == "" {
		return ErrEmptyInboxMessage
	}

	return nil
}

// ActionDraft is a proposed mutation awaiting user confirmation. A draft in
// status "draft" whose expiry is still in the future pins its source inbox
// item against compaction.
type ActionDraft struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	ChatID            string      `json:"chat_id"`
	SourceInboxItemID string      `json:"source_inbox_item_id,omitempty"`
	SourceMessage     string      `json:"source_message"`
	ProposalJSON      []byte      `json:"proposal_json"`
	Status            DraftStatus `json:"status"`
	ExpiresAt         time.Time   `json:"expires_at"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Validate checks if the ActionDraft has valid data.
func (d *ActionDraft) Validate() error {
	if d.ID == "" {
		return ErrEmptyDraftID
	}

	if d.UserID == "" {
		return ErrEmptyInboxUserID
	}

	if !isValidDraftStatus(d.Status) {
		return ErrInvalidDraft
	}

	return nil
}

// ParseDraftStatus converts a stored string into a DraftStatus, failing on
// unknown values.
func ParseDraftStatus(s string) (DraftStatus, error) {
	status := DraftStatus(s)
	if !isValidDraftStatus(status) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDraft, s)
	}
	return status, nil
}

func isValidDraftStatus(status DraftStatus) bool {
	switch status {
	case DraftStatusDraft, DraftStatusConfirmed, DraftStatusDiscarded, DraftStatusExpired:
		return true
	default:
		return false
	}
}
