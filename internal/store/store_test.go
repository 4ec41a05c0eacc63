package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestCreateAndGet(t *testing.T) {
	st := New()

	created, err := st.Create("s1")
	if err != nil {
		t.Fatal(err)
	}
	if created.SessionID != "s1" {
		t.Fatalf("expected id s1, got %s", created.SessionID)
	}

	got, err := st.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got != created {
		t.Fatal("Get must return the same session instance")
	}
}

func TestCreate_DuplicateFails(t *testing.T) {
	st := New()
	if _, err := st.Create("s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Create("s1"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestGet_Unknown(t *testing.T) {
	st := New()
	if _, err := st.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	st := New()
	if _, err := st.Create("s1"); err != nil {
		t.Fatal(err)
	}
	st.Delete("s1")
	if _, err := st.Get("s1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected session gone after delete")
	}
	// Deleting a missing id is a no-op.
	st.Delete("s1")
}

func TestConcurrentCreate(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, _ = st.Create(fmt.Sprintf("s%d", v))
		}(i)
	}
	wg.Wait()

	if st.Len() != 50 {
		t.Fatalf("expected 50 sessions, got %d", st.Len())
	}
}
