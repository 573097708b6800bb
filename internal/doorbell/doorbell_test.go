package doorbell

import (
	"testing"
	"time"
)

func TestSlowModeAtMostOnePendingByte(t *testing.T) {
	t.Parallel()

	writer, reader, err := NewPair(false)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	defer writer.Close()
	defer reader.Close()

	if n, err := writer.RingSlow(); err != nil || n != 1 {
		t.Fatalf("RingSlow: n=%d err=%v, want 1, nil", n, err)
	}
	// A second ring while one byte is still pending must not write a
	// second byte.
	if n, err := writer.RingSlow(); err != nil || n != 0 {
		t.Fatalf("RingSlow (second): n=%d err=%v, want 0, nil", n, err)
	}

	done := make(chan struct{})
	go func() {
		reader.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never observed the single wake-up byte")
	}

	// A second Wait should now block, since only one byte was ever
	// written despite two RingSlow calls.
	waited := make(chan struct{})
	go func() {
		reader.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("second Wait returned but no second byte was ever written")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDrainSlowRemovesUnreadByte(t *testing.T) {
	t.Parallel()

	writer, reader, err := NewPair(false)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	defer writer.Close()
	defer reader.Close()

	if n, err := writer.RingSlow(); err != nil || n != 1 {
		t.Fatalf("RingSlow: n=%d err=%v, want 1, nil", n, err)
	}

	// Drain before the reader ever consumes the byte: it must actually
	// disappear from the reader's side, not just clear a local flag.
	writer.DrainSlow()

	waited := make(chan struct{})
	go func() {
		reader.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned after DrainSlow removed the only byte written")
	case <-time.After(50 * time.Millisecond):
	}

	// A fresh ring after the drain must still be observable.
	if n, err := writer.RingSlow(); err != nil || n != 1 {
		t.Fatalf("RingSlow after drain: n=%d err=%v, want 1, nil", n, err)
	}
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait never observed the post-drain byte")
	}
}

func TestFastModeBurstAndDrain(t *testing.T) {
	t.Parallel()

	writer, reader, err := NewPair(true)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	defer writer.Close()
	defer reader.Close()

	go func() {
		if n, err := writer.RingFast(5); err != nil || n != 5 {
			t.Errorf("RingFast: n=%d err=%v, want 5, nil", n, err)
		}
	}()

	for i := 0; i < 5; i++ {
		done := make(chan error, 1)
		go func() { done <- reader.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Wait %d: %v", i, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("Wait %d timed out, burst under-delivered", i)
		}
	}
}

func TestFastModeCapsAtMaxDepth(t *testing.T) {
	t.Parallel()

	writer, reader, err := NewPair(true)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	defer writer.Close()
	defer reader.Close()

	go writer.RingFast(MaxDepth + 1000)

	for i := 0; i < MaxDepth; i++ {
		done := make(chan error, 1)
		go func() { done <- reader.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Wait %d: %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Wait %d timed out, expected at least MaxDepth bytes", i)
		}
	}
}
