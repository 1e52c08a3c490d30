// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/conq"
)

func TestUnboundedSPSCBasic(t *testing.T) {
	q := conq.NewUnboundedSPSC[int]()

	if _, err := q.Dequeue(); !errors.Is(err, conq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}

	// Never backpressures: push far past any bounded ring's capacity.
	for i := range 10000 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	for i := range 10000 {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, conq.ErrWouldBlock) {
		t.Fatalf("Dequeue after drain: got %v, want ErrWouldBlock", err)
	}
}

func TestUnboundedSPSCProducerConsumer(t *testing.T) {
	q := conq.NewUnboundedSPSC[int]()
	done := make(chan struct{})
	const n = 5000

	go func() {
		for i := range n {
			v := i
			for q.Enqueue(&v) != nil {
			}
		}
		close(done)
	}()

	for i := range n {
		var v int
		var err error
		for {
			v, err = q.Dequeue()
			if err == nil {
				break
			}
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}
	<-done
}
