package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/explorer"
	"github.com/HaiFongPan/rbrowse/internal/tui/theme"
)

// MessageType represents different message types for status display
type MessageType int

// Message type constants
const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

// DefaultTTL is how long a message stays on the status line
const DefaultTTL = 5 * time.Second

// StatusManager manages status messages and their display
type StatusManager interface {
	SetMessage(message string, msgType MessageType)
	ClearMessage()
	GetMessage() (string, MessageType, bool)
	RenderMessage() string
	HasMessage() bool
}

// StatusManagerImpl implements the StatusManager interface. Notifications
// arrive from command goroutines, so it is guarded by a mutex.
type StatusManagerImpl struct {
	mu            sync.Mutex
	statusMessage string
	messageType   MessageType
	messageTimer  time.Time
	ttl           time.Duration
	now           func() time.Time
}

// NewStatusManager creates a new status manager instance
func NewStatusManager() *StatusManagerImpl {
	return &StatusManagerImpl{
		messageType: MessageInfo,
		ttl:         DefaultTTL,
		now:         time.Now,
	}
}

// SetMessage sets a status message with type
func (sm *StatusManagerImpl) SetMessage(message string, msgType MessageType) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.statusMessage = message
	sm.messageType = msgType
	sm.messageTimer = sm.now()

	logrus.Debugf("StatusManager: setMessage called with message='%s', type=%d", message, msgType)
}

// ClearMessage clears the status message
func (sm *StatusManagerImpl) ClearMessage() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.statusMessage = ""
}

// GetMessage returns the current message, type, and whether a message exists
func (sm *StatusManagerImpl) GetMessage() (string, MessageType, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.liveLocked() {
		return "", MessageInfo, false
	}
	return sm.statusMessage, sm.messageType, true
}

// HasMessage returns whether there is currently a status message
func (sm *StatusManagerImpl) HasMessage() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.liveLocked()
}

// errors stay until replaced, everything else expires
func (sm *StatusManagerImpl) liveLocked() bool {
	if sm.statusMessage == "" {
		return false
	}
	if sm.messageType == MessageError {
		return true
	}
	return sm.now().Sub(sm.messageTimer) < sm.ttl
}

// RenderMessage renders the current status message with appropriate styling
func (sm *StatusManagerImpl) RenderMessage() string {
	message, msgType, ok := sm.GetMessage()
	if !ok {
		return ""
	}

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.GetMessageColor(int(msgType)))).
		Bold(true)

	return messageStyle.Render(fmt.Sprintf("%s %s", theme.GetMessageIcon(int(msgType)), message))
}

// Notifier adapts a StatusManager to explorer.Notifier. Wake, when set, is
// called after each notification so the UI can redraw.
type Notifier struct {
	Status StatusManager
	Wake   func()
}

// Notify implements explorer.Notifier
func (n *Notifier) Notify(note explorer.Notification) {
	text := note.Summary
	if note.Detail != "" {
		text = fmt.Sprintf("%s: %s", note.Summary, note.Detail)
	}
	n.Status.SetMessage(text, TypeFor(note.Level))
	if n.Wake != nil {
		n.Wake()
	}
}

// TypeFor maps a notification level to a status message type
func TypeFor(level explorer.Level) MessageType {
	switch level {
	case explorer.LevelSuccess:
		return MessageSuccess
	case explorer.LevelWarning:
		return MessageWarning
	case explorer.LevelError:
		return MessageError
	default:
		return MessageInfo
	}
}
