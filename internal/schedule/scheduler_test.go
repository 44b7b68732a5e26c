package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string {
	return j.name
}

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestAddJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "heartbeat"}

	require.NoError(t, s.AddJob(job, ""))
	require.False(t, s.Scheduled("heartbeat"))

	require.Error(t, s.AddJob(job, "not a cron spec"))
	require.False(t, s.Scheduled("heartbeat"))

	require.NoError(t, s.AddJob(job, "@every 1h"))
	require.True(t, s.Scheduled("heartbeat"))
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	require.Len(t, s.cron.Entries(), 1)
}

func TestWrap_RunsJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "heartbeat", err: errors.New("boom")}
	run := s.wrap(job, "@every 1h")
	run()
	run()
	require.Equal(t, int32(2), job.runs.Load())
}

func TestWrap_SkipsOverlappingRun(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "slow", block: make(chan struct{})}
	run := s.wrap(job, "@every 1h")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	run()
	require.Equal(t, int32(1), job.runs.Load())
	close(job.block)
	<-done
}
