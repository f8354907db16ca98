package pool

import "testing"

func TestGetBufferSizes(t *testing.T) {
	for _, size := range []int{1, 4096, CopyBufferSize, CopyBufferSize + 1, 100000} {
		buf := GetBuffer(size)
		if len(buf) != size {
			t.Errorf("GetBuffer(%d) returned %d bytes", size, len(buf))
		}
		PutBuffer(buf)
	}
}

func TestBufferReuse(t *testing.T) {
	buf := GetBuffer(CopyBufferSize)
	if cap(buf) != CopyBufferSize {
		t.Fatalf("GetBuffer(CopyBufferSize) capacity = %d", cap(buf))
	}
	PutBuffer(buf)

	again := GetBuffer(100)
	if cap(again) != CopyBufferSize {
		t.Errorf("small request should come from the pool bucket, got cap %d", cap(again))
	}
	PutBuffer(again)
}

func TestOversizedBuffersAreNotPooled(t *testing.T) {
	buf := GetBuffer(CopyBufferSize + 1)
	if cap(buf) == CopyBufferSize {
		t.Fatal("oversized request must not come from the pool")
	}
	// returning it is a no-op, not a corruption of the bucket
	PutBuffer(buf)
	reused := GetBuffer(10)
	if cap(reused) != CopyBufferSize {
		t.Errorf("pool bucket corrupted, got cap %d", cap(reused))
	}
}
