package storagetest

import (
	"sync"
	"testing"
)

// GoroutineTest collects errors from test goroutines. Calling t.Fatal off
// the test goroutine only kills that goroutine, so concurrent tests return
// errors here instead and Wait reports them.
//
//	gt := storagetest.NewGoroutineTest(t)
//	defer gt.Wait()
//
//	gt.Go(func() error {
//	    _, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{})
//	    return err
//	})
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
}

// NewGoroutineTest creates a GoroutineTest helper.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100),
	}
}

// Go runs fn in a goroutine and collects its error, if any.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			select {
			case gt.errors <- err:
			default:
				gt.t.Logf("error channel full, dropping: %v", err)
			}
		}
	}()
}

// Wait blocks until every goroutine finishes and fails the test if any
// returned an error. Defer it right after NewGoroutineTest.
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	close(gt.errors)

	failed := false
	for err := range gt.errors {
		gt.t.Errorf("goroutine error: %v", err)
		failed = true
	}
	if failed {
		gt.t.FailNow()
	}
}
