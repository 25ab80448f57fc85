package assistant

import (
	"container/list"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one line of a conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records chat traffic.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// maxOpenLogFiles bounds the file handles kept open across sessions.
const maxOpenLogFiles = 64

type openLogFile struct {
	path string
	f    *os.File
}

// fileConversationLogger appends events to <dir>/<user>/<session>.ndjson
// from a single writer goroutine. Events are dropped when the queue is full.
// At most maxOpen files stay open; the least recently written is closed first.
type fileConversationLogger struct {
	dir     string
	queue   chan ConversationLogEvent
	done    chan struct{}
	logger  *slog.Logger
	maxOpen int
	files   map[string]*list.Element
	lru     *list.List

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewConversationLogger returns a file logger, or a no-op logger when disabled.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := newFileConversationLogger(cfg.Dir, cfg.QueueSize, maxOpenLogFiles, logger)
	go l.run()
	return l, nil
}

func newFileConversationLogger(dir string, queueSize, maxOpen int, logger *slog.Logger) *fileConversationLogger {
	return &fileConversationLogger{
		dir:     dir,
		queue:   make(chan ConversationLogEvent, queueSize),
		done:    make(chan struct{}),
		logger:  logger,
		maxOpen: maxOpen,
		files:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Log enqueues an event without blocking.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"user_id", event.UserID, "session_id", event.SessionID, "event_type", event.EventType)
	}
}

// Close drains the queue and closes open files.
func (l *fileConversationLogger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
		<-l.done
	})
	return nil
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write conversation log", "user_id", event.UserID, "error", err)
		}
	}
	for l.lru.Len() > 0 {
		l.closeOldest()
	}
}

// openFiles reports how many log files are currently open.
func (l *fileConversationLogger) openFiles() int {
	return l.lru.Len()
}

func (l *fileConversationLogger) closeOldest() {
	el := l.lru.Back()
	entry := l.lru.Remove(el).(*openLogFile)
	delete(l.files, entry.path)
	if err := entry.f.Close(); err != nil {
		l.logger.Warn("failed to close conversation log", "path", entry.path, "error", err)
	}
}

func (l *fileConversationLogger) open(path string) (*os.File, error) {
	if el, ok := l.files[path]; ok {
		l.lru.MoveToFront(el)
		return el.Value.(*openLogFile).f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create user log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}
	for l.lru.Len() >= l.maxOpen {
		l.closeOldest()
	}
	l.files[path] = l.lru.PushFront(&openLogFile{path: path, f: f})
	return f, nil
}

func (l *fileConversationLogger) write(event ConversationLogEvent) error {
	path := filepath.Join(l.dir, safeSegment(event.UserID), safeSegment(event.SessionID)+".ndjson")
	f, err := l.open(path)
	if err != nil {
		return err
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

var (
	ansiPattern    = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	unsafeSegment  = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	spaceRunsRegex = regexp.MustCompile(`[ \t]+`)
)

// cleanForReadability strips escape sequences and control characters and
// collapses runs of spaces.
func cleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = spaceRunsRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func safeSegment(s string) string {
	s = unsafeSegment.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
