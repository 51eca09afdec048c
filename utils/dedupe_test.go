package utils

import (
	"fmt"
	"sync"
	"testing"
)

func TestIDSetAdd(t *testing.T) {
	s := NewIDSet()

	if !s.Add("imovirtual:101") {
		t.Error("first Add returned false")
	}
	if s.Add("imovirtual:101") {
		t.Error("duplicate Add returned true")
	}
	if !s.Contains("imovirtual:101") {
		t.Error("Contains returned false for a tracked id")
	}
	if s.Contains("imovirtual:999") {
		t.Error("Contains returned true for an unknown id")
	}
	if s.Size() != 1 {
		t.Errorf("Size = %d; want 1", s.Size())
	}
}

func TestIDSetConcurrentAdd(t *testing.T) {
	s := NewIDSet()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Add(fmt.Sprintf("id-%d", i))
			}
		}()
	}
	wg.Wait()

	if s.Size() != 100 {
		t.Errorf("Size = %d; want 100 unique ids", s.Size())
	}
}
