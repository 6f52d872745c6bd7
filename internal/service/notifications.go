package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"persona-forge/internal/domain"
)

const defaultNotificationTTL = 5 * time.Second

// NotificationChannel guarda mensajes transitorios que expiran solos.
type NotificationChannel struct {
	mu     sync.Mutex
	ttl    time.Duration
	items  []domain.Notification
	timers map[string]*time.Timer
}

func NewNotificationChannel(ttl time.Duration) *NotificationChannel {
	if ttl <= 0 {
		ttl = defaultNotificationTTL
	}
	return &NotificationChannel{
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
	}
}

func (n *NotificationChannel) Add(message string, severity domain.Severity) domain.Notification {
	item := domain.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	n.timers[item.ID] = time.AfterFunc(n.ttl, func() {
		n.Dismiss(item.ID)
	})
	return item
}

func (n *NotificationChannel) Info(message string) domain.Notification {
	return n.Add(message, domain.SeverityInfo)
}

func (n *NotificationChannel) Success(message string) domain.Notification {
	return n.Add(message, domain.SeveritySuccess)
}

func (n *NotificationChannel) Error(message string) domain.Notification {
	return n.Add(message, domain.SeverityError)
}

// List devuelve las notificaciones vigentes, la mas antigua primero.
func (n *NotificationChannel) List() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Dismiss quita una notificacion; devuelve false si ya no estaba.
func (n *NotificationChannel) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Close detiene los timers pendientes y vacia la lista.
func (n *NotificationChannel) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	n.items = nil
}
