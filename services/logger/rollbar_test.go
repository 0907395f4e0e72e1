package logsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentportal/core/session"
	"github.com/trezcool/studentportal/tests"
)

func newTestLogger(buf *bytes.Buffer) *RollbarLogger {
	logger := NewRollbarLogger(zerolog.New(buf), testutil.Config("http://backend.test"))
	logger.Enable(false)
	return logger
}

func TestRollbarLogger_mirror(t *testing.T) {
	sess := session.Session{Token: "abc", StudentID: "S001", Email: "s001@uni.test"}

	tests := []struct {
		name  string
		log   func(l *RollbarLogger)
		level string
		want  map[string]interface{}
	}{
		{
			name:  "info message",
			log:   func(l *RollbarLogger) { l.Info("started") },
			level: "info",
			want:  map[string]interface{}{"message": "started"},
		},
		{
			name:  "error with extra data and session",
			log:   func(l *RollbarLogger) { l.Error("fetching courses", errors.New("boom"), map[string]interface{}{"page": "courses"}, sess) },
			level: "error",
			want: map[string]interface{}{
				"message":    "fetching courses",
				"error":      "boom",
				"page":       "courses",
				"student_id": "S001",
			},
		},
		{
			name:  "warn",
			log:   func(l *RollbarLogger) { l.Warn("slow backend", 42) },
			level: "warn",
			want:  map[string]interface{}{"message": "slow backend", "extra": float64(42)},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.log(newTestLogger(&buf))

			var got map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
			assert.Equal(t, tc.level, got["level"])
			for key, val := range tc.want {
				assert.Equal(t, val, got[key], key)
			}
		})
	}
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := newTestLogger(new(bytes.Buffer))
	err := errors.New("boom")

	t.Run("anonymous", func(t *testing.T) {
		got := logger.prepare("msg", []interface{}{err, session.Session{}})
		assert.Equal(t, []interface{}{"msg", err}, got)
	})

	t.Run("student", func(t *testing.T) {
		s001 := session.Session{Token: "abc", StudentID: "S001", Email: "s001@uni.test"}
		s002 := session.Session{Token: "def", StudentID: "S002"}

		got := logger.prepare("msg", []interface{}{err, s001, s002})
		require.Len(t, got, 3)
		assert.Equal(t, []interface{}{"msg", err}, got[:2])

		ctx, ok := got[2].(context.Context)
		require.True(t, ok)
		person, ok := rollbar.PersonFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, rollbar.Person{Id: "S001", Username: "S001", Email: "s001@uni.test"}, *person)
	})
}

// Each item carries its own student; concurrent requests must not share one.
func TestRollbarLogger_concurrentStudents(t *testing.T) {
	logger := newTestLogger(new(bytes.Buffer))

	var wg sync.WaitGroup
	for _, id := range []string{"S001", "S002"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sess := session.Session{Token: "tok-" + id, StudentID: id}
			for i := 0; i < 200; i++ {
				args := logger.prepare("page failed", []interface{}{sess})
				person, ok := rollbar.PersonFromContext(args[len(args)-1].(context.Context))
				if assert.True(t, ok) {
					assert.Equal(t, id, person.Id)
				}
			}
		}(id)
	}
	wg.Wait()
}
