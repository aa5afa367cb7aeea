package irq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLatchesUntilAcknowledged(t *testing.T) {
	c := New()
	assert.False(t, c.PendingIRQ())
	c.Request(IRQ)
	assert.True(t, c.PendingIRQ())
	c.AcknowledgeIRQ()
	assert.False(t, c.PendingIRQ())
}

func TestIRQAndFIQAreIndependent(t *testing.T) {
	c := New()
	c.Request(FIQ)
	assert.False(t, c.PendingIRQ())
	assert.True(t, c.PendingFIQ())
	c.AcknowledgeIRQ()
	assert.True(t, c.PendingFIQ())
	c.AcknowledgeFIQ()
	assert.False(t, c.PendingFIQ())
}

func TestRepeatedRequestsStayLatched(t *testing.T) {
	c := New()
	c.Request(IRQ)
	c.Request(IRQ)
	assert.True(t, c.PendingIRQ())
	c.AcknowledgeIRQ()
	assert.False(t, c.PendingIRQ())
}
