package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTimer_Fires(t *testing.T) {
	timer := GetTimer(10 * time.Millisecond)
	defer PutTimer(timer)

	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestPutTimer_Reuse(t *testing.T) {
	timer := GetTimer(time.Millisecond)
	<-timer.C
	PutTimer(timer)

	// A reused timer must be fully reset: it must not fire early and must
	// fire again after the new duration.
	reused := GetTimer(20 * time.Millisecond)
	defer PutTimer(reused)

	select {
	case <-reused.C:
		t.Fatal("reused timer fired immediately")
	case <-time.After(5 * time.Millisecond):
	}

	select {
	case <-reused.C:
	case <-time.After(time.Second):
		t.Fatal("reused timer never fired")
	}
}

func TestPutTimer_ActiveTimer(t *testing.T) {
	timer := GetTimer(time.Hour)
	PutTimer(timer) // still active; PutTimer must stop and drain it

	again := GetTimer(5 * time.Millisecond)
	defer PutTimer(again)

	start := time.Now()
	<-again.C
	require.Less(t, time.Since(start), time.Second)
	assert.NotNil(t, again)
}
