package ring

import (
	"reflect"
	"testing"
)

func TestBufferEvictsOldestFirst(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 3; i++ {
		if _, evicted := b.Push(i); evicted {
			t.Fatalf("unexpected eviction at %d", i)
		}
	}
	old, evicted := b.Push(4)
	if !evicted || old != 1 {
		t.Fatalf("expected eviction of 1, got %d evicted=%v", old, evicted)
	}
	old, _ = b.Push(5)
	if old != 2 {
		t.Fatalf("expected eviction of 2, got %d", old)
	}
	if got := b.Values(); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Fatalf("unexpected values: %v", got)
	}
	if b.Len() != 3 || b.Cap() != 3 {
		t.Fatalf("unexpected len/cap: %d/%d", b.Len(), b.Cap())
	}
}

func TestBufferLast(t *testing.T) {
	b := New[string](4)
	if got := b.Last(2); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		b.Push(s)
	}
	if got := b.Last(3); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
		t.Fatalf("unexpected last: %v", got)
	}
	if got := b.Last(10); !reflect.DeepEqual(got, []string{"b", "c", "d", "e"}) {
		t.Fatalf("unexpected last overflow: %v", got)
	}
}

func TestBufferValuesIsACopy(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	vals := b.Values()
	vals[0] = 99
	if b.Values()[0] != 1 {
		t.Fatalf("buffer aliased by Values")
	}
}

func TestBufferReset(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	b.Push(2)
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("expected empty after reset")
	}
	b.Push(7)
	if got := b.Values(); !reflect.DeepEqual(got, []int{7}) {
		t.Fatalf("unexpected values after reset: %v", got)
	}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New[int](0)
}
