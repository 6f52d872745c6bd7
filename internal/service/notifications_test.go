package service

import (
	"testing"
	"time"

	"persona-forge/internal/domain"
)

func TestNotificationChannelExpires(t *testing.T) {
	ch := NewNotificationChannel(20 * time.Millisecond)
	defer ch.Close()

	ch.Success("saved")
	if len(ch.List()) != 1 {
		t.Fatalf("expected notification to be visible")
	}

	deadline := time.Now().Add(time.Second)
	for len(ch.List()) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(ch.List()) != 0 {
		t.Fatalf("expected notification to expire")
	}
}

func TestNotificationChannelDismiss(t *testing.T) {
	ch := NewNotificationChannel(time.Minute)
	defer ch.Close()

	first := ch.Info("first")
	second := ch.Error("second")

	if !ch.Dismiss(first.ID) {
		t.Fatalf("expected dismiss to succeed")
	}
	if ch.Dismiss(first.ID) {
		t.Fatalf("expected second dismiss to report missing")
	}
	items := ch.List()
	if len(items) != 1 || items[0].ID != second.ID || items[0].Severity != domain.SeverityError {
		t.Fatalf("unexpected notifications %+v", items)
	}
}

func TestNotificationChannelKeepsInsertionOrder(t *testing.T) {
	ch := NewNotificationChannel(0)
	defer ch.Close()

	ch.Info("a")
	ch.Success("b")
	ch.Error("c")

	items := ch.List()
	if len(items) != 3 || items[0].Message != "a" || items[2].Message != "c" {
		t.Fatalf("unexpected order %+v", items)
	}
	ch.Close()
	if len(ch.List()) != 0 {
		t.Fatalf("expected close to clear notifications")
	}
}
