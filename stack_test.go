// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq_test

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"code.hybscloud.com/conq"
)

func TestStackLIFO(t *testing.T) {
	s := conq.NewStack[int]()

	if _, err := s.Pop(); !errors.Is(err, conq.ErrWouldBlock) {
		t.Fatalf("Pop on empty: got %v, want ErrWouldBlock", err)
	}

	for i := range 5 {
		s.Push(i)
	}
	for i := 4; i >= 0; i-- {
		v, err := s.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if v != i {
			t.Fatalf("Pop: got %d, want %d", v, i)
		}
	}

	if _, err := s.Pop(); !errors.Is(err, conq.ErrWouldBlock) {
		t.Fatalf("Pop after drain: got %v, want ErrWouldBlock", err)
	}
}

func TestStackConcurrent(t *testing.T) {
	if conq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numPushers = 8
		perPusher  = 500
	)
	total := numPushers * perPusher

	s := conq.NewStack[int]()
	var wg sync.WaitGroup
	for p := range numPushers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range perPusher {
				s.Push(id*perPusher + i)
			}
		}(p)
	}
	wg.Wait()

	var popped []int
	for {
		v, err := s.Pop()
		if err != nil {
			break
		}
		popped = append(popped, v)
	}

	if len(popped) != total {
		t.Fatalf("popped %d values, want %d", len(popped), total)
	}
	sort.Ints(popped)
	for i, v := range popped {
		if v != i {
			t.Fatalf("popped[%d] = %d, want %d (missing or duplicate value)", i, v, i)
		}
	}
}
