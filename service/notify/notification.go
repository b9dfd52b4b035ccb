// Package notify dispatches templated, fire-and-forget notifications after a
// commit. Delivery failures are logged and retried by the queue; they never
// reach the operation that scheduled the notification.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Kinds of notification.
const (
	KindApprovalRequested   = "approval.requested"
	KindTransactionResolved = "transaction.resolved"
	KindTransactionRejected = "transaction.rejected"
	KindExceptionSubmitted  = "exception.submitted"
	KindExceptionDecided    = "exception.decided"
	KindBudgetLocked        = "budget.locked"
)

// Notification is the event handed to the dispatcher.
type Notification struct {
	Kind           string `json:"kind"`
	RecipientID    string `json:"recipientId"`
	RecipientEmail string `json:"recipientEmail,omitempty"`
	CreatorID      string `json:"creatorId,omitempty"`
	TeamID         string `json:"teamId,omitempty"`
	EntityID       string `json:"entityId"`
	Amount         int64  `json:"amount,omitempty"`
	Vendor         string `json:"vendor,omitempty"`
	CategoryID     string `json:"categoryId,omitempty"`
	Status         string `json:"status,omitempty"`
	Comment        string `json:"comment,omitempty"`
	Link           string `json:"link,omitempty"`
}

// Path returns the entity path referenced by the notification.
func (n *Notification) Path() string {
	switch n.Kind {
	case KindExceptionSubmitted, KindExceptionDecided:
		return "exceptions/" + n.EntityID
	case KindBudgetLocked:
		return "budgets/" + n.EntityID
	}
	return "transactions/" + n.EntityID
}

// Message is a rendered notification.
type Message struct {
	RecipientID string
	To          string
	Subject     string
	Body        string
}

// Notifier accepts notifications for asynchronous delivery. Implementations
// must not block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, n *Notification)
}

// Sender delivers rendered messages, e.g. by email.
type Sender interface {
	Send(ctx context.Context, message *Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, message *Message) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification",
		zap.String("recipient_id", message.RecipientID),
		zap.String("to", message.To),
		zap.String("subject", message.Subject))
	return nil
}

// MemorySender records messages; Failure, when set, is returned instead.
type MemorySender struct {
	mu       sync.Mutex
	messages []*Message
	Failure  error
}

// Send implements Sender.
func (s *MemorySender) Send(_ context.Context, message *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Failure != nil {
		return s.Failure
	}
	s.messages = append(s.messages, message)
	return nil
}

// Messages returns recorded messages.
func (s *MemorySender) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Message(nil), s.messages...)
}

// SetFailure sets the error returned by Send.
func (s *MemorySender) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failure = err
}
