package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockFinalizer struct {
	mock.Mock
}

func (m *mockFinalizer) FinalizeEnded(ctx context.Context, now time.Time) (int64, int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestSweep_RunsBothPasses(t *testing.T) {
	finalizer := new(mockFinalizer)
	sweeper := new(mockSweeper)

	finalizer.On("FinalizeEnded", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(2), int64(1), nil)
	sweeper.On("Sweep", mock.Anything).Return(int64(3), nil)

	job := NewSweepJob(finalizer, sweeper, time.Minute)
	job.sweep()

	finalizer.AssertExpectations(t)
	sweeper.AssertExpectations(t)
}

func TestSweep_FinalizeFailureDoesNotBlockSessionSweep(t *testing.T) {
	finalizer := new(mockFinalizer)
	sweeper := new(mockSweeper)

	finalizer.On("FinalizeEnded", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(int64(0), int64(0), errors.New("db down"))
	sweeper.On("Sweep", mock.Anything).Return(int64(0), nil)

	job := NewSweepJob(finalizer, sweeper, time.Minute)
	job.sweep()

	sweeper.AssertExpectations(t)
}

func TestSweepJob_StartStop(t *testing.T) {
	finalizer := new(mockFinalizer)
	sweeper := new(mockSweeper)

	done := make(chan struct{})
	finalizer.On("FinalizeEnded", mock.Anything, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			select {
			case <-done:
			default:
				close(done)
			}
		}).
		Return(int64(0), int64(0), nil)
	sweeper.On("Sweep", mock.Anything).Return(int64(0), nil)

	job := NewSweepJob(finalizer, sweeper, time.Hour)
	job.Start()
	defer job.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run on start")
	}

	assert.True(t, finalizer.AssertCalled(t, "FinalizeEnded", mock.Anything, mock.AnythingOfType("time.Time")))
}
