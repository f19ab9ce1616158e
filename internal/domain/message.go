package domain

import "time"

// Message is an internal mail item exchanged between two users.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Subject     string
	Body        string
	IsSpam      bool
	IsArchived  bool
	IsRead      bool
	CreatedAt   time.Time
}

// InvolvesUser reports whether userID is the sender or the recipient.
func (m *Message) InvolvesUser(userID int64) bool {
	return m.SenderID == userID || m.RecipientID == userID
}

// MessageAction enumerates per-message mutations.
type MessageAction string

const (
	ActionArchive   MessageAction = "archive"
	ActionUnarchive MessageAction = "unarchive"
	ActionRead      MessageAction = "read"
	ActionUnread    MessageAction = "unread"
	ActionDelete    MessageAction = "delete"
)

// Valid reports whether the action is one of the known actions.
func (a MessageAction) Valid() bool {
	switch a {
	case ActionArchive, ActionUnarchive, ActionRead, ActionUnread, ActionDelete:
		return true
	}
	return false
}

// RecipientOnly reports whether only the recipient may apply the action.
func (a MessageAction) RecipientOnly() bool {
	return a == ActionArchive || a == ActionUnarchive || a == ActionDelete
}

// PastTense renders the action for status messages.
func (a MessageAction) PastTense() string {
	switch a {
	case ActionArchive:
		return "archived"
	case ActionUnarchive:
		return "unarchived"
	case ActionRead:
		return "marked as read"
	case ActionUnread:
		return "marked as unread"
	case ActionDelete:
		return "deleted"
	}
	return string(a)
}

// Folder selects one of the mailbox views of a user.
type Folder string

const (
	FolderInbox    Folder = "inbox"
	FolderSent     Folder = "sent"
	FolderRead     Folder = "read"
	FolderReceived Folder = "received"
	FolderSpam     Folder = "spam"
	FolderArchived Folder = "archived"
)

// MessageFilter is the storage level predicate behind a Folder.
// Nil fields are not constrained.
type MessageFilter struct {
	SenderID    *int64
	RecipientID *int64
	IsSpam      *bool
	IsArchived  *bool
	IsRead      *bool
}

// FilterFor builds the predicate of folder as seen by userID.
func FilterFor(folder Folder, userID int64) (MessageFilter, bool) {
	yes, no := true, false
	uid := userID
	switch folder {
	case FolderInbox, FolderReceived:
		return MessageFilter{RecipientID: &uid, IsSpam: &no, IsArchived: &no}, true
	case FolderSent:
		return MessageFilter{SenderID: &uid, IsArchived: &no}, true
	case FolderRead:
		return MessageFilter{RecipientID: &uid, IsRead: &yes, IsSpam: &no}, true
	case FolderSpam:
		return MessageFilter{RecipientID: &uid, IsSpam: &yes}, true
	case FolderArchived:
		return MessageFilter{RecipientID: &uid, IsArchived: &yes}, true
	}
	return MessageFilter{}, false
}

// Matches evaluates the filter against a message.
func (f MessageFilter) Matches(m *Message) bool {
	if f.SenderID != nil && m.SenderID != *f.SenderID {
		return false
	}
	if f.RecipientID != nil && m.RecipientID != *f.RecipientID {
		return false
	}
	if f.IsSpam != nil && m.IsSpam != *f.IsSpam {
		return false
	}
	if f.IsArchived != nil && m.IsArchived != *f.IsArchived {
		return false
	}
	if f.IsRead != nil && m.IsRead != *f.IsRead {
		return false
	}
	return true
}
