package filebased

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxHistorySize bounds the number of files remembered by a cursor.
const DefaultMaxHistorySize = 10000

// State keys.
const (
	stateHistory = "history"
)

// Cursor tracks which files of a stream have been synced.
type Cursor interface {
	// SetInitialState restores the cursor from a previously emitted state.
	SetInitialState(state map[string]any) error

	// AddFile records file as synced.
	AddFile(file RemoteFile)

	// GetState returns the state to emit after a file is synced.
	GetState() map[string]any

	// GetFilesToSync filters all down to the files that need syncing.
	GetFilesToSync(all []RemoteFile, logger *slog.Logger) []RemoteFile

	// GetStartTime is the earliest modification time still worth syncing.
	GetStartTime() time.Time
}

// CursorFactory creates the cursor of one stream.
type CursorFactory func(cfg StreamConfig) Cursor

// DefaultCursor remembers the modification time of every synced file, up
// to a maximum history size. Once the history is full, a new file is synced
// when it is newer than the oldest remembered file, or when it was modified
// within DaysToSyncIfHistoryIsFull days before that file.
type DefaultCursor struct {
	history        map[string]time.Time
	maxHistorySize int
	window         time.Duration

	// earliest file in the history when the cursor was restored
	initialEarliest *RemoteFile
	startTime       time.Time
}

// NewDefaultCursor creates a cursor for cfg with DefaultMaxHistorySize.
func NewDefaultCursor(cfg StreamConfig) Cursor {
	return NewDefaultCursorWithSize(cfg, DefaultMaxHistorySize)
}

// NewDefaultCursorWithSize creates a cursor with a custom history bound.
func NewDefaultCursorWithSize(cfg StreamConfig, maxHistorySize int) *DefaultCursor {
	days := cfg.DaysToSyncIfHistoryIsFull
	if days <= 0 {
		days = DefaultDaysToSyncIfHistoryIsFull
	}
	return &DefaultCursor{
		history:        make(map[string]time.Time),
		maxHistorySize: maxHistorySize,
		window:         time.Duration(days) * 24 * time.Hour,
	}
}

// SetInitialState implements Cursor.
func (c *DefaultCursor) SetInitialState(state map[string]any) error {
	c.history = make(map[string]time.Time)
	raw, _ := state[stateHistory].(map[string]any)
	for uri, v := range raw {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("history entry %q: expected a timestamp string, got %T", uri, v)
		}
		t, err := ParseTime(s)
		if err != nil {
			return fmt.Errorf("history entry %q: %w", uri, err)
		}
		c.history[uri] = t
	}
	c.initialEarliest = c.earliest()
	c.startTime = c.computeStartTime()
	return nil
}

// AddFile implements Cursor.
func (c *DefaultCursor) AddFile(file RemoteFile) {
	c.history[file.URI] = file.LastModified.UTC()
	if len(c.history) > c.maxHistorySize {
		if oldest := c.earliest(); oldest != nil {
			delete(c.history, oldest.URI)
		}
	}
}

// GetState implements Cursor.
func (c *DefaultCursor) GetState() map[string]any {
	history := make(map[string]any, len(c.history))
	for uri, t := range c.history {
		history[uri] = FormatTime(t)
	}
	state := map[string]any{stateHistory: history}
	if latest := c.latest(); latest != nil {
		state[FieldLastModified] = FormatTime(latest.LastModified) + "_" + latest.URI
	}
	return state
}

// GetFilesToSync implements Cursor.
func (c *DefaultCursor) GetFilesToSync(all []RemoteFile, logger *slog.Logger) []RemoteFile {
	if c.historyFull() && logger != nil {
		logger.Warn("file history is full, syncing only files modified within the window",
			"max_history_size", c.maxHistorySize,
			"start_time", FormatTime(c.startTime))
	}
	var out []RemoteFile
	for _, f := range all {
		if c.shouldSync(f, logger) {
			out = append(out, f)
		}
	}
	return out
}

// GetStartTime implements Cursor.
func (c *DefaultCursor) GetStartTime() time.Time {
	return c.startTime
}

func (c *DefaultCursor) shouldSync(f RemoteFile, logger *slog.Logger) bool {
	if synced, ok := c.history[f.URI]; ok {
		if f.LastModified.Before(synced) && logger != nil {
			logger.Warn("file's last modified time is older than the synced time",
				"file", f.URI,
				"last_modified", FormatTime(f.LastModified),
				"synced", FormatTime(synced))
		}
		return f.LastModified.After(synced)
	}
	if !c.historyFull() {
		return true
	}
	if c.initialEarliest == nil {
		return true
	}
	switch {
	case f.LastModified.After(c.initialEarliest.LastModified):
		return true
	case f.LastModified.Equal(c.initialEarliest.LastModified):
		return f.URI > c.initialEarliest.URI
	default:
		return !f.LastModified.Before(c.startTime)
	}
}

func (c *DefaultCursor) historyFull() bool {
	return len(c.history) >= c.maxHistorySize
}

func (c *DefaultCursor) computeStartTime() time.Time {
	earliest := c.earliest()
	if earliest == nil {
		return time.Time{}
	}
	return earliest.LastModified.Add(-c.window)
}

func (c *DefaultCursor) sorted() []RemoteFile {
	files := make([]RemoteFile, 0, len(c.history))
	for uri, t := range c.history {
		files = append(files, RemoteFile{URI: uri, LastModified: t})
	}
	sortFiles(files)
	return files
}

func (c *DefaultCursor) earliest() *RemoteFile {
	files := c.sorted()
	if len(files) == 0 {
		return nil
	}
	return &files[0]
}

func (c *DefaultCursor) latest() *RemoteFile {
	files := c.sorted()
	if len(files) == 0 {
		return nil
	}
	return &files[len(files)-1]
}
