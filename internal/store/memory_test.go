package store

import (
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/labboard/internal/model"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
	if store.Generation() != "" {
		t.Errorf("Generation() = %q, want empty", store.Generation())
	}
}

func TestMemoryStore_ResetStartsUnknown(t *testing.T) {
	store := NewMemoryStore()
	store.Reset("gen-1", []string{"g0-s0", "g0-s1"})

	all := store.GetAll()
	if len(all) != 2 {
		t.Fatalf("GetAll() = %v items, want 2", len(all))
	}
	for i, want := range []string{"g0-s0", "g0-s1"} {
		if all[i].ID != want {
			t.Errorf("GetAll()[%d].ID = %q, want %q", i, all[i].ID, want)
		}
		if all[i].Verdict != model.VerdictUnknown {
			t.Errorf("GetAll()[%d].Verdict = %q, want unknown", i, all[i].Verdict)
		}
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()
	store.Reset("gen-1", []string{"g0-s0"})

	if !store.Update(Handle{Generation: "gen-1", ID: "g0-s0"}, model.VerdictOnline) {
		t.Fatal("Update() = false for current handle")
	}

	b, _ := store.Get("g0-s0")
	if b.Verdict != model.VerdictOnline {
		t.Errorf("Verdict = %q, want online", b.Verdict)
	}
	if b.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
}

func TestMemoryStore_UpdateAtMostOncePerRound(t *testing.T) {
	store := NewMemoryStore()
	store.Reset("gen-1", []string{"g0-s0"})
	h := Handle{Generation: "gen-1", ID: "g0-s0"}

	store.Update(h, model.VerdictOffline)
	if store.Update(h, model.VerdictOnline) {
		t.Error("second Update() = true, want false")
	}

	b, _ := store.Get("g0-s0")
	if b.Verdict != model.VerdictOffline {
		t.Errorf("Verdict = %q, want offline", b.Verdict)
	}
}

func TestMemoryStore_StaleHandleIsNoop(t *testing.T) {
	store := NewMemoryStore()
	store.Reset("gen-1", []string{"g0-s0"})
	stale := Handle{Generation: "gen-1", ID: "g0-s0"}

	store.Reset("gen-2", []string{"g0-s0"})

	if store.Update(stale, model.VerdictOnline) {
		t.Error("Update() with stale generation = true")
	}
	if store.Update(Handle{Generation: "gen-2", ID: "g9-s9"}, model.VerdictOnline) {
		t.Error("Update() with unknown id = true")
	}

	b, _ := store.Get("g0-s0")
	if b.Verdict != model.VerdictUnknown {
		t.Errorf("Verdict = %q, want unknown", b.Verdict)
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()
	store.Reset("gen-1", []string{"a"})

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(Handle{Generation: "gen-1", ID: "a"}, model.VerdictOnline)
	}()

	select {
	case ev := <-ch:
		if ev.Kind != KindBadge || ev.Badge == nil || ev.Badge.ID != "a" {
			t.Errorf("received %+v, want badge event for a", ev)
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_ResetAndPublishNotify(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()

	store.Reset("gen-7", nil)
	store.Publish(KindValidation, map[string]string{"state": "valid"})

	first := <-ch
	if first.Kind != KindRender || first.Generation != "gen-7" {
		t.Errorf("first event = %+v, want render gen-7", first)
	}
	second := <-ch
	if second.Kind != KindValidation || second.Generation != "gen-7" {
		t.Errorf("second event = %+v, want validation gen-7", second)
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		store.Reset("gen-1", nil)
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 events", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}

	// second call is a no-op
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// a subscriber that never reads
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			store.Publish(KindDiscoveries, i)
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Publish() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ids := []string{"a", "b", "c", "d"}
	store.Reset("gen-0", ids)

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for _, id := range ids {
				store.Update(Handle{Generation: "gen-0", ID: id}, model.VerdictOnline)
			}
			if n%3 == 0 {
				store.Reset("gen-x", ids)
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			_ = store.GetAll()
			time.Sleep(5 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
