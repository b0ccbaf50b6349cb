package tracker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryOpen(t *testing.T) {
	tr := New()

	require.NoError(t, tr.TryOpen("m1", "REF"))
	assert.True(t, tr.IsOpen("m1", "REF"))

	err := tr.TryOpen("m1", "REF")
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []string{"REF"}, tr.Departments("m1"))
}

func TestTryOpen_DistinctDepartments(t *testing.T) {
	tr := New()

	require.NoError(t, tr.TryOpen("m1", "REF"))
	require.NoError(t, tr.TryOpen("m1", "ITK"))
	assert.Equal(t, []string{"ITK", "REF"}, tr.Departments("m1"))

	tr.Close("m1", "REF")
	assert.False(t, tr.IsOpen("m1", "REF"))
	assert.True(t, tr.IsOpen("m1", "ITK"))
	assert.True(t, tr.HasMember("m1"))
}

func TestClose_PrunesAndIsIdempotent(t *testing.T) {
	tr := New()
	require.NoError(t, tr.TryOpen("m1", "REF"))

	tr.Close("m1", "REF")
	assert.False(t, tr.IsOpen("m1", "REF"))
	assert.False(t, tr.HasMember("m1"))
	assert.Equal(t, 0, tr.Len())

	tr.Close("m1", "REF")
	tr.Close("unknown", "REF")
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Departments("m1"))
}

func TestAttachAndByMessage(t *testing.T) {
	tr := New()

	_, err := tr.Attach("m1", "REF", "c1", "msg-1")
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, tr.TryOpen("m1", "REF"))
	req, err := tr.Attach("m1", "REF", "c1", "msg-1")
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "msg-1", req.NotificationMessageID)

	found, ok := tr.ByMessage("msg-1")
	require.True(t, ok)
	assert.Equal(t, "m1", found.MemberID)
	assert.Equal(t, "REF", found.Department)
	assert.Equal(t, "c1", found.ChannelID)
	assert.Equal(t, req.ID, found.ID)

	tr.Close("m1", "REF")
	_, ok = tr.ByMessage("msg-1")
	assert.False(t, ok)
}

func TestAttach_ReplacesPreviousMessage(t *testing.T) {
	tr := New()
	require.NoError(t, tr.TryOpen("m1", "REF"))

	_, err := tr.Attach("m1", "REF", "c1", "msg-1")
	require.NoError(t, err)
	_, err = tr.Attach("m1", "REF", "c1", "msg-2")
	require.NoError(t, err)

	_, ok := tr.ByMessage("msg-1")
	assert.False(t, ok)
	_, ok = tr.ByMessage("msg-2")
	assert.True(t, ok)
}

func TestExpire(t *testing.T) {
	tr := New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	current := base
	tr.now = func() time.Time { return current }

	require.NoError(t, tr.TryOpen("m1", "REF"))
	_, err := tr.Attach("m1", "REF", "c1", "msg-1")
	require.NoError(t, err)

	current = base.Add(50 * time.Minute)
	require.NoError(t, tr.TryOpen("m2", "ITK"))

	assert.Empty(t, tr.Expire(base.Add(time.Hour), 0))
	assert.Equal(t, 2, tr.Len())

	expired := tr.Expire(base.Add(61*time.Minute), time.Hour)
	require.Len(t, expired, 1)
	assert.Equal(t, "m1", expired[0].MemberID)
	assert.False(t, tr.IsOpen("m1", "REF"))
	assert.False(t, tr.HasMember("m1"))
	assert.True(t, tr.IsOpen("m2", "ITK"))

	_, ok := tr.ByMessage("msg-1")
	assert.False(t, ok)
}

func TestTryOpen_ConcurrentSamePair(t *testing.T) {
	tr := New()

	var accepted int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryOpen("m1", "REF") == nil {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, 1, tr.Len())
}

func TestLock_SerializesCheckThenOpen(t *testing.T) {
	tr := New()

	var accepted int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := tr.Lock("m1", "REF")
			defer unlock()

			if tr.IsOpen("m1", "REF") {
				return
			}
			time.Sleep(time.Millisecond)
			if tr.TryOpen("m1", "REF") == nil {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, 0, tr.locks.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()

	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}

	unlockA()
	unlockA()
	assert.Equal(t, 0, k.size())
}

func TestRetire_ClosedExpiredAndReplacedNotifications(t *testing.T) {
	tr := New()

	require.NoError(t, tr.TryOpen("m1", "REF"))
	_, err := tr.Attach("m1", "REF", "c1", "msg-1")
	require.NoError(t, err)
	assert.False(t, tr.IsRetired("msg-1"))

	_, err = tr.Attach("m1", "REF", "c1", "msg-2")
	require.NoError(t, err)
	assert.True(t, tr.IsRetired("msg-1"), "superseded notification")

	req, ok := tr.Request("m1", "REF")
	require.True(t, ok)
	assert.Equal(t, "msg-2", req.NotificationMessageID)

	tr.Close("m1", "REF")
	assert.True(t, tr.IsRetired("msg-2"), "closed notification")

	require.NoError(t, tr.TryOpen("m2", "ITK"))
	_, err = tr.Attach("m2", "ITK", "c2", "msg-3")
	require.NoError(t, err)
	require.Len(t, tr.Expire(time.Now().Add(time.Hour), time.Minute), 1)
	assert.True(t, tr.IsRetired("msg-3"), "expired notification")

	tr.Retire("untracked")
	assert.True(t, tr.IsRetired("untracked"))
}

func TestRetiredSet_Bounded(t *testing.T) {
	r := newRetiredSet(2)
	r.add("a")
	r.add("b")
	r.add("a")
	assert.Equal(t, 2, r.len())

	r.add("c")
	assert.Equal(t, 2, r.len())
	assert.False(t, r.has("a"))
	assert.True(t, r.has("b"))
	assert.True(t, r.has("c"))

	r.add("d")
	assert.False(t, r.has("b"))
	assert.True(t, r.has("d"))

	r.add("")
	assert.False(t, r.has(""))
}
