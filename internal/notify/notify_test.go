package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

type targetFunc func(ctx context.Context, text string) error

func (f targetFunc) SendMessage(ctx context.Context, text string) error { return f(ctx, text) }

func TestMultiNotifierDeliversToAllTargets(t *testing.T) {
	var first, second []string
	m := NewMultiNotifier(arbor.NewLogger(),
		targetFunc(func(ctx context.Context, text string) error {
			first = append(first, text)
			return nil
		}),
		targetFunc(func(ctx context.Context, text string) error {
			second = append(second, text)
			return nil
		}),
	)

	if err := m.SendMessage(context.Background(), "scan finished"); err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one delivery per target, got %d and %d", len(first), len(second))
	}
}

func TestMultiNotifierIsolatesFailures(t *testing.T) {
	var delivered []string
	m := NewMultiNotifier(arbor.NewLogger(),
		targetFunc(func(ctx context.Context, text string) error {
			return fmt.Errorf("websocket closed")
		}),
		targetFunc(func(ctx context.Context, text string) error {
			delivered = append(delivered, text)
			return nil
		}),
		targetFunc(func(ctx context.Context, text string) error {
			return fmt.Errorf("disk full")
		}),
	)

	err := m.SendMessage(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "websocket closed") || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected both failures in error, got %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("healthy target must still receive the message, got %d deliveries", len(delivered))
	}
}

func TestMultiNotifierNoTargets(t *testing.T) {
	m := NewMultiNotifier(arbor.NewLogger())
	if err := m.SendMessage(context.Background(), "into the void"); err != nil {
		t.Fatal(err)
	}
}

type memNotificationStorage struct {
	saved []*models.Notification
	err   error
}

func (s *memNotificationStorage) SaveNotification(ctx context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, n)
	return nil
}

func (s *memNotificationStorage) ListNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	return s.saved, nil
}

func TestStoreNotifierPersists(t *testing.T) {
	storage := &memNotificationStorage{}
	s := NewStoreNotifier(storage, arbor.NewLogger())

	if err := s.SendMessage(context.Background(), "job done"); err != nil {
		t.Fatal(err)
	}
	if len(storage.saved) != 1 {
		t.Fatalf("expected 1 persisted notification, got %d", len(storage.saved))
	}
	if storage.saved[0].Text != "job done" {
		t.Fatalf("unexpected text %q", storage.saved[0].Text)
	}
	if storage.saved[0].ID == "" {
		t.Fatal("notification must get an ID")
	}

	storage.err = fmt.Errorf("db closed")
	if err := s.SendMessage(context.Background(), "lost"); err == nil {
		t.Fatal("expected storage error to surface")
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "short message", 100, []string{"short message"}},
		{"exact limit", "12345", 5, []string{"12345"}},
		{
			"splits on line boundary",
			"line one\nline two\nline three",
			18,
			[]string{"line one\nline two", "line three"},
		},
		{
			"hard splits oversized line",
			"aaaaaaaaaa",
			4,
			[]string{"aaaa", "aaaa", "aa"},
		},
		{
			"oversized line flushes pending chunk",
			"ok\n" + strings.Repeat("b", 7),
			5,
			[]string{"ok", "bbbbb", "bb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d: %q", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d: expected %q, got %q", i, tt.want[i], got[i])
				}
				if len(got[i]) > tt.limit {
					t.Errorf("chunk %d exceeds limit: %d > %d", i, len(got[i]), tt.limit)
				}
			}
		})
	}
}

var _ interfaces.Notifier = targetFunc(nil)
