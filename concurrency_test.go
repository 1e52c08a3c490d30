// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/conq"
	"code.hybscloud.com/iox"
)

// TestMPMCConcurrent exercises the capacity-4, 2-producer/2-consumer shape:
// each producer emits 100 unique values, each consumer races the other for
// whatever is available, and every value must be seen exactly once.
func TestMPMCConcurrent(t *testing.T) {
	if conq.RaceEnabled {
		t.Skip("skip: CAS+flag algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 2
		numConsumers = 2
		itemsPerProd = 100
	)

	q := conq.NewMPMC[int](4)
	total := numProducers * itemsPerProd
	seen := make([]atomix.Int32, total)

	var wg sync.WaitGroup
	var consumed atomix.Int64
	deadline := time.Now().Add(10 * time.Second)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for q.Enqueue(&v) != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.LoadAcquire() < int64(total) {
				val, err := q.Dequeue()
				if err != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if seen[val].AddAcqRel(1) != 1 {
					t.Errorf("value %d seen more than once", val)
				}
				consumed.AddAcqRel(1)
			}
		}()
	}

	wg.Wait()

	if got := consumed.LoadAcquire(); got != int64(total) {
		t.Fatalf("consumed %d items, want %d", got, total)
	}
	for i := range seen {
		if seen[i].LoadAcquire() != 1 {
			t.Errorf("value %d: seen %d times, want 1", i, seen[i].LoadAcquire())
		}
	}
}

// TestMPSCConcurrent exercises multiple producers racing against a single
// consumer.
func TestMPSCConcurrent(t *testing.T) {
	if conq.RaceEnabled {
		t.Skip("skip: CAS+flag algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 4
		itemsPerProd = 500
	)

	q := conq.NewMPSC[int](64)
	total := numProducers * itemsPerProd
	seen := make([]atomix.Int32, total)

	var wg sync.WaitGroup
	deadline := time.Now().Add(10 * time.Second)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for q.Enqueue(&v) != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	consumed := 0
	backoff := iox.Backoff{}
	for consumed < total && time.Now().Before(deadline) {
		val, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if seen[val].AddAcqRel(1) != 1 {
			t.Errorf("value %d seen more than once", val)
		}
		consumed++
	}
	wg.Wait()

	if consumed != total {
		t.Fatalf("consumed %d items, want %d", consumed, total)
	}
}

// TestSPMCConcurrent exercises a single producer against multiple
// consumers racing for items.
func TestSPMCConcurrent(t *testing.T) {
	if conq.RaceEnabled {
		t.Skip("skip: CAS+flag algorithm uses cross-variable memory ordering")
	}

	const (
		numConsumers = 4
		totalItems   = 2000
	)

	q := conq.NewSPMC[int](64)
	seen := make([]atomix.Int32, totalItems)

	var wg sync.WaitGroup
	var consumed atomix.Int64
	deadline := time.Now().Add(10 * time.Second)

	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := range totalItems {
			v := i
			for q.Enqueue(&v) != nil {
				if time.Now().After(deadline) {
					return
				}
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.LoadAcquire() < int64(totalItems) {
				val, err := q.Dequeue()
				if err != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if seen[val].AddAcqRel(1) != 1 {
					t.Errorf("value %d seen more than once", val)
				}
				consumed.AddAcqRel(1)
			}
		}()
	}

	wg.Wait()

	if got := consumed.LoadAcquire(); got != int64(totalItems) {
		t.Fatalf("consumed %d items, want %d", got, totalItems)
	}
}
