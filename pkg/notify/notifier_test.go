package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewReturnsNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, New("", "C123"))
	assert.Nil(t, New("token", ""))
	assert.Nil(t, New("", ""))
}

func TestNewReturnsNotifierWhenConfigured(t *testing.T) {
	n := New("xoxb-token", "C123")
	assert.NotNil(t, n)
}

func TestNilNotifierRunIsNoOp(t *testing.T) {
	var n *Notifier
	done := make(chan struct{})
	go func() {
		n.Run(nil, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nil notifier Run did not return immediately")
	}
}
