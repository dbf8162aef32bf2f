package logging

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry, trace level included.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns the entries whose message is exactly msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Reset drops everything recorded so far.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

func (t *TestLogger) matching(level zapcore.Level, snippet string) *observer.ObservedLogs {
	return t.observed.FilterLevelExact(level).FilterMessageSnippet(snippet)
}

// AssertLogged fails tb unless an entry at level has a message containing
// snippet.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if t.matching(level, snippet).Len() == 0 {
		tb.Errorf("no %s entry containing %q; recorded: %s", levelName(level), snippet, t.summary())
	}
}

func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if n := t.matching(level, snippet).Len(); n > 0 {
		tb.Errorf("%d unexpected %s entries containing %q", n, levelName(level), snippet)
	}
}

// AssertField fails tb unless some entry with message msg carries key=want.
// Integer fields compare as int64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessage(msg).FilterFieldKey(key).All() {
		if reflect.DeepEqual(entry.ContextMap()[key], want) {
			return
		}
	}
	tb.Errorf("no %q entry with %s=%v; recorded: %s", msg, key, want, t.summary())
}

// AssertTextBounded fails tb if any string field holds more than max runes.
// Scored post bodies must only reach the logs as previews.
func (t *TestLogger) AssertTextBounded(tb testing.TB, max int) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		for _, f := range entry.Context {
			if f.Type != zapcore.StringType {
				continue
			}
			if n := utf8.RuneCountInString(f.String); n > max {
				tb.Errorf("field %q of %q has %d runes (max %d)", f.Key, entry.Message, n, max)
			}
		}
	}
}

func (t *TestLogger) summary() string {
	entries := t.observed.All()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, levelName(e.Level)+" "+e.Message)
	}
	return "[" + strings.Join(lines, "; ") + "]"
}
