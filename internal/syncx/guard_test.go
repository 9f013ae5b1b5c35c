package syncx

import (
	"sync"
	"testing"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard(42)

	if got := g.Get(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}

	g.Set(100)
	if got := g.Get(); got != 100 {
		t.Errorf("Get() after Set = %d, want 100", got)
	}
}

func TestGuardRead(t *testing.T) {
	g := NewGuard([]int{1, 2, 3})

	var n int
	g.Read(func(v []int) { n = len(v) })

	if n != 3 {
		t.Errorf("Read() saw len %d, want 3", n)
	}
}

func TestGuardWrite(t *testing.T) {
	type counter struct{ value int }
	g := NewGuard(counter{})

	g.Write(func(c *counter) { c.value = 42 })

	if got := g.Get().value; got != 42 {
		t.Errorf("Get().value = %d, want 42", got)
	}
}

func TestGuardCompareAndUpdate(t *testing.T) {
	g := NewGuard(5)

	applied := g.CompareAndUpdate(func(v *int) bool {
		if *v >= 3 {
			return false
		}
		*v = 3
		return true
	})
	if applied {
		t.Error("CompareAndUpdate applied a change it should have rejected")
	}
	if got := g.Get(); got != 5 {
		t.Errorf("Get() = %d, want 5", got)
	}

	applied = g.CompareAndUpdate(func(v *int) bool {
		*v = 9
		return true
	})
	if !applied || g.Get() != 9 {
		t.Errorf("CompareAndUpdate = %v, value %d; want true, 9", applied, g.Get())
	}
}

func TestGuardConcurrent(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Write(func(v *int) { *v++ })
		}()
		go func() {
			defer wg.Done()
			_ = g.Get()
		}()
	}
	wg.Wait()

	if got := g.Get(); got != 100 {
		t.Errorf("Get() = %d, want 100", got)
	}
}
