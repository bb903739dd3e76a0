package refresher

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	ok    bool
	stage string
	took  time.Duration
}

type fakeObserver struct{ got []observation }

func (f *fakeObserver) Observe(ok bool, stage string, _ time.Time, took time.Duration) {
	f.got = append(f.got, observation{ok, stage, took})
}

func newBufferedSink(obs Observer) (LogSink, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return LogSink{Logger: logger, Path: "/kube/config", Metrics: obs}, &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogSink_Success(t *testing.T) {
	obs := &fakeObserver{}
	sink, buf := newBufferedSink(obs)

	sink.Record(Result{CycleID: "c1", Started: time.Now(), Duration: time.Second})

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "Updated kubeconfig with new token", lines[0]["msg"])
	assert.Equal(t, "c1", lines[0]["cycle_id"])
	assert.Equal(t, "/kube/config", lines[0]["path"])
	assert.Equal(t, []observation{{true, "", time.Second}}, obs.got)
}

func TestLogSink_Failure(t *testing.T) {
	obs := &fakeObserver{}
	sink, buf := newBufferedSink(obs)

	sink.Record(Result{
		CycleID: "c2",
		Started: time.Now(),
		Err:     &RefreshError{Stage: StageWrite, Err: errors.New("Cannot write to file")},
	})

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "Failed to refresh kubeconfig", lines[0]["msg"])
	assert.Equal(t, "write", lines[0]["stage"])
	assert.Contains(t, lines[0]["err"], "Cannot write to file")
	assert.Equal(t, []observation{{false, "write", 0}}, obs.got)
}

func TestLogSink_NeverLogsToken(t *testing.T) {
	sink, buf := newBufferedSink(nil)
	sink.Record(Result{CycleID: "c3", Started: time.Now()})
	sink.Record(Result{CycleID: "c4", Started: time.Now(), Err: &RefreshError{Stage: StageFetch, Err: errors.New("exit status 1")}})

	assert.NotContains(t, buf.String(), "token\":")
	assert.Len(t, logLines(t, buf), 2)
}
