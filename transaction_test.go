package pakbus

import "testing"

func TestTransactionCounterWraps(t *testing.T) {
	var c TransactionCounter
	var last uint8
	for i := 0; i < 256; i++ {
		last = c.NextID()
	}
	if last != 0 {
		t.Fatalf("after 256 allocations got %d, want 0", last)
	}
	if next := c.NextID(); next != 1 {
		t.Fatalf("257th allocation = %d, want 1", next)
	}
}
