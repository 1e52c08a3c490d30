// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package conq_test

import (
	"testing"

	"code.hybscloud.com/conq"
)

func TestSemaphorePostWait(t *testing.T) {
	sem, err := conq.CreateSemaphore("conq-test-sem-basic", 0)
	if err != nil {
		t.Skipf("System V semaphore unavailable in this environment: %v", err)
	}
	defer sem.Unlink()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sem.Wait(); err != nil {
			t.Errorf("Wait: %v", err)
		}
	}()

	if err := sem.Post(); err != nil {
		t.Fatalf("Post: %v", err)
	}
	<-done
}
