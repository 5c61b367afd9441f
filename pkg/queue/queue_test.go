package queue

import "testing"

type fakeSender struct{ calls []string }

func (f *fakeSender) SendEncryptedMessage(channel byte, code uint16, body []byte) error {
	f.calls = append(f.calls, "enc-msg")
	return nil
}
func (f *fakeSender) SendEncryptedMediaPacket(channel byte, payload []byte) error {
	f.calls = append(f.calls, "enc-media")
	return nil
}
func (f *fakeSender) SendUnencryptedBlob(channel byte, payload []byte) error {
	f.calls = append(f.calls, "blob")
	return nil
}
func (f *fakeSender) SendUnencryptedMessage(channel byte, code uint16, body []byte) error {
	f.calls = append(f.calls, "msg")
	return nil
}

func TestFIFOOrdering(t *testing.T) {
	q := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Push(func(s Sender) { order = append(order, i) })
	}

	sender := &fakeSender{}
	for {
		cmd, ok := q.Pop()
		if !ok {
			break
		}
		cmd.Run(sender)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want strictly increasing", order)
		}
	}
}

func TestPushWakesExactlyOnce(t *testing.T) {
	q := New()
	q.Push(func(s Sender) {})
	q.Push(func(s Sender) {})

	select {
	case <-q.Wake():
	default:
		t.Fatalf("expected a pending wake signal")
	}

	select {
	case <-q.Wake():
		t.Fatalf("expected wake signal to be coalesced to one")
	default:
	}
}

func TestPopOnEmptyQueue(t *testing.T) {
	q := New()
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected Pop on empty queue to return ok=false")
	}
}
