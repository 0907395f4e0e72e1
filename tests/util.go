package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/studentportal/core"
)

// Config returns the configuration used by tests: in-memory storage, no CSRF check,
// no request logs and the backend at backendURL.
func Config(backendURL string) *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Student Portal",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
			DisableCSRF:     true,
			DisableReqLogs:  true,
		},
		Backend: core.BackendConfig{
			BaseURL:      backendURL + "/",
			PhotoBaseURL: backendURL + "/",
			Timeout:      5 * time.Second,
		},
		Storage: core.StorageConfig{Engine: "memory"},
	}
}

// LogEntry is one call recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger recording every entry in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return new(Logger) }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { panic(fmt.Sprintf("fatal: %s %v", msg, args)) }

// Entries returns the recorded entries of level, or all of them if level is "".
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}
