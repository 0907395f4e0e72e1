package logsvc

import (
	"context"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/session"
)

// RollbarLogger reports to rollbar and mirrors every entry to a zerolog logger.
type RollbarLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl zerolog.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{zl: zl}
}

// NewConsoleWriter returns the zerolog logger used in development: human readable output on stdout.
func NewConsoleWriter(conf *core.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().Timestamp().Str("build", conf.Build).
		Logger()
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for queued rollbar items to be sent.
func (l RollbarLogger) Close() {
	rollbar.Close()
}

// expected fmt: msg | error, map[string]interface{}, session.Session
// The logged in student travels with each item in a rollbar person context, never as the global person.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var person *rollbar.Person
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if sess, ok := arg.(session.Session); ok {
			if person == nil && sess.IsAuthenticated() { // only report one student
				person = &rollbar.Person{Id: sess.StudentID, Username: sess.StudentID, Email: sess.Email}
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if person != nil {
		newArgs = append(newArgs, rollbar.NewPersonContext(context.Background(), person))
	}
	return newArgs
}

func (l RollbarLogger) print(evt *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		case session.Session:
			evt = evt.Str("student_id", a.StudentID)
		default:
			evt = evt.Interface("extra", a)
		}
	}
	evt.Msg(msg)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(l.zl.Debug(), msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(l.zl.Info(), msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(l.zl.Warn(), msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(l.zl.Error(), msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Close()
	l.print(l.zl.Fatal(), msg, args) // exits
}
