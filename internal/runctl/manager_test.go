package runctl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_EmptyGroupNeverBlocks(t *testing.T) {
	m := NewManager()

	ctx1, release1, err := m.Acquire(context.Background(), "", false)
	require.NoError(t, err)
	defer release1()

	ctx2, release2, err := m.Acquire(context.Background(), "", false)
	require.NoError(t, err)
	defer release2()

	assert.NoError(t, ctx1.Err())
	assert.NoError(t, ctx2.Err())
	assert.False(t, m.Active(""))
}

func TestAcquire_CancelInProgressSupersedesPreviousRun(t *testing.T) {
	m := NewManager()

	prevCtx, prevRelease, err := m.Acquire(context.Background(), "ci-master", true)
	require.NoError(t, err)
	assert.True(t, m.Active("ci-master"))

	// The superseded run releases its slot once it observes cancellation.
	go func() {
		<-prevCtx.Done()
		prevRelease()
	}()

	newCtx, newRelease, err := m.Acquire(context.Background(), "ci-master", true)
	require.NoError(t, err)
	defer newRelease()

	assert.ErrorIs(t, prevCtx.Err(), context.Canceled)
	assert.NoError(t, newCtx.Err())
	assert.True(t, m.Active("ci-master"))
}

func TestAcquire_WithoutCancelWaitsForSlot(t *testing.T) {
	m := NewManager()

	prevCtx, prevRelease, err := m.Acquire(context.Background(), "ci-master", false)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		_, release, err := m.Acquire(context.Background(), "ci-master", false)
		assert.NoError(t, err)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second run acquired the slot while the first was still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.NoError(t, prevCtx.Err(), "waiting must not cancel the in-flight run")

	prevRelease()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second run never acquired the slot after release")
	}
}

func TestAcquire_WaiterHonoursItsOwnCancellation(t *testing.T) {
	m := NewManager()

	_, release, err := m.Acquire(context.Background(), "ci-master", false)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.Acquire(ctx, "ci-master", false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRelease_IsIdempotent(t *testing.T) {
	m := NewManager()

	_, release, err := m.Acquire(context.Background(), "ci-master", false)
	require.NoError(t, err)

	release()
	assert.NotPanics(t, release)
	assert.False(t, m.Active("ci-master"))
}
