package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"festregistration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	calls    atomic.Int32
	report   *domain.ReconcileReport
	err      error
	deadline bool
}

func (f *fakeReconciler) RecomputeAllCounters(ctx context.Context) (*domain.ReconcileReport, error) {
	f.calls.Add(1)
	_, f.deadline = ctx.Deadline()
	return f.report, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestReconcileJob_Run(t *testing.T) {
	tests := []struct {
		name    string
		report  *domain.ReconcileReport
		err     error
		wantLog string
	}{
		{
			name:    "drift is logged as a warning",
			report:  &domain.ReconcileReport{EventsChecked: 3, Drifted: []domain.CounterDrift{{EventID: "ev-1", Stored: 4, Actual: 2}}},
			wantLog: "counter reconciliation corrected drift",
		},
		{
			name:   "clean run stays quiet",
			report: &domain.ReconcileReport{EventsChecked: 3},
		},
		{
			name:    "failure is logged",
			err:     errors.New("db down"),
			wantLog: "counter reconciliation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
			r := &fakeReconciler{report: tt.report, err: tt.err}

			NewReconcileJob(r, logger, time.Second).Run()

			assert.Equal(t, int32(1), r.calls.Load())
			assert.True(t, r.deadline)
			if tt.wantLog == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.wantLog)
		})
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	r := &fakeReconciler{report: &domain.ReconcileReport{}}
	s := NewScheduler(discardLogger())
	require.NoError(t, s.Add("reconcile", "@every 1s", NewReconcileJob(r, discardLogger(), time.Second)))
	s.Start()

	require.Eventually(t, func() bool { return r.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(discardLogger())
	job := NewReconcileJob(&fakeReconciler{}, discardLogger(), time.Second)

	require.NoError(t, s.Add("reconcile", "", job))
	require.Error(t, s.Add("reconcile", "every tuesday", job))
	require.NoError(t, s.Add("reconcile", "*/5 * * * *", job))
}
