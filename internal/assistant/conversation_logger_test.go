package assistant

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConversationLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	event := ConversationLogEvent{
		UserID:     "user-1",
		SessionID:  "sess-1",
		Channel:    "chat_http",
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: "what was my last payment?",
	}
	logger.Log(event)

	path := filepath.Join(dir, "user-1", "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got ConversationLogEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "what was my last payment?" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content == "" {
		t.Fatal("expected cleaned content to be populated")
	}
	if got.Timestamp == "" {
		t.Fatal("expected timestamp to be filled in")
	}
}

func TestConversationLoggerSanitisesPathSegments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 4}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	logger.Log(ConversationLogEvent{UserID: "../../etc", SessionID: "a/b", ContentRaw: "x"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".._.._etc", "a_b.ndjson")); err != nil {
		t.Fatalf("expected sanitised log path: %v", err)
	}
}

func TestConversationLoggerBoundsOpenFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l := newFileConversationLogger(dir, 1, 4, slog.Default())

	for i := 0; i < 50; i++ {
		err := l.write(ConversationLogEvent{UserID: fmt.Sprintf("guest_%d", i), SessionID: "default", ContentRaw: "hi"})
		if err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		if n := l.openFiles(); n > 4 {
			t.Fatalf("expected at most 4 open files, got %d after %d sessions", n, i+1)
		}
	}

	// A session whose handle was evicted is reopened and appended to.
	if err := l.write(ConversationLogEvent{UserID: "guest_0", SessionID: "default", ContentRaw: "again"}); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	close(l.queue)
	l.run()
	if n := l.openFiles(); n != 0 {
		t.Fatalf("expected all files closed after shutdown, got %d", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "guest_0", "default.ndjson"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Fatalf("expected 2 lines for guest_0, got %d", lines)
	}
}

func TestConversationLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}
	logger.Log(ConversationLogEvent{UserID: "u"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31merror\x1b[0m   plain\x07"
	clean := cleanForReadability(raw)
	if strings.Contains(clean, "\x1b[31m") {
		t.Fatalf("expected ANSI sequence to be stripped: %q", clean)
	}
	if clean != "error plain" {
		t.Fatalf("expected readable text to remain: %q", clean)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
