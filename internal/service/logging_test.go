package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-grader/internal/middleware"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// entry returns the first log line carrying the given message.
func (b *logBuffer) entry(t *testing.T, message string) map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			continue
		}
		if fields["message"] == message {
			return fields
		}
	}
	t.Fatalf("no log line %q in:\n%s", message, b.buf.String())
	return nil
}

func TestGradeLogsCarryCorrelationID(t *testing.T) {
	logs := &logBuffer{}
	f := newPipelineWithLogger(
		&rawJudge{raw: judgeScenarioA},
		&rawAuditor{err: errors.New("503 service unavailable")},
		zerolog.New(logs),
	)

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-123")
	_, err := f.service.Grade(ctx, scenarioInput(t))
	require.NoError(t, err)

	fallback := logs.entry(t, "audit unavailable, keeping judge grade")
	require.Equal(t, "corr-123", fallback["correlation_id"])
	require.Equal(t, "invocation", fallback["reason"])

	completed := logs.entry(t, "grading completed")
	require.Equal(t, "corr-123", completed["correlation_id"])
	require.Equal(t, "ALU-01", completed["student_id"])
	require.Equal(t, true, completed["audit_skipped"])
}

func TestGradeAbortLogCarriesCorrelationID(t *testing.T) {
	logs := &logBuffer{}
	f := newPipelineWithLogger(
		&rawJudge{err: errors.New("dial tcp: i/o timeout")},
		&rawAuditor{},
		zerolog.New(logs),
	)

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-456")
	_, err := f.service.Grade(ctx, scenarioInput(t))
	require.ErrorIs(t, err, ErrJudgeInvocation)

	aborted := logs.entry(t, "grading aborted")
	require.Equal(t, "corr-456", aborted["correlation_id"])
	require.Equal(t, "judge_failed", aborted["outcome"])
	require.Equal(t, "judging", aborted["stage"])
	require.Equal(t, "error", aborted["level"])
}
