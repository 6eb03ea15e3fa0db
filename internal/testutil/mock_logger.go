// Package testutil provides common test utilities for ChemPrep.
package testutil

import (
	"sync"

	"github.com/turtacn/ChemPrep/internal/logging"
)

// MockLogger implements logging.Logger and records every entry, so tests
// can assert on what a component logged.
type MockLogger struct {
	mu       sync.Mutex
	name     string
	with     []logging.Field
	Messages *[]LogMessage
}

// LogMessage is a single captured log entry.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	msgs := make([]LogMessage, 0)
	return &MockLogger{Messages: &msgs}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(append([]logging.Field{}, m.with...), fields...)
	*m.Messages = append(*m.Messages, LogMessage{
		Level:   level,
		Logger:  m.name,
		Message: msg,
		Fields:  all,
	})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }

// With returns a child logger sharing the same message sink.
func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	return &MockLogger{
		name:     m.name,
		with:     append(append([]logging.Field{}, m.with...), fields...),
		Messages: m.Messages,
	}
}

// Named returns a child logger sharing the same message sink.
func (m *MockLogger) Named(name string) logging.Logger {
	full := name
	if m.name != "" {
		full = m.name + "." + name
	}
	return &MockLogger{name: full, with: m.with, Messages: m.Messages}
}

// HasMessage reports whether any captured entry matches level and message.
func (m *MockLogger) HasMessage(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range *m.Messages {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
