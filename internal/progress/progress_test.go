package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type call struct {
	consumed, total int64
	final           bool
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestReporter_RateLimit(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: time.Unix(0, 0)}
	var calls []call
	r := New(func(c, tot int64, f bool) { calls = append(calls, call{c, tot, f}) }, 1000, WithClock(clk.now))

	r.Update(10) // interval not yet elapsed
	clk.advance(50 * time.Millisecond)
	r.Update(20)
	clk.advance(60 * time.Millisecond)
	r.Update(30) // 110ms since start
	clk.advance(10 * time.Millisecond)
	r.Update(40)
	r.Finish()

	want := []call{{30, 1000, false}, {40, 1000, true}}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v, want %+v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestReporter_FinalExactlyOnce(t *testing.T) {
	t.Parallel()
	var finals int
	r := New(func(_, _ int64, f bool) {
		if f {
			finals++
		}
	}, 0)

	func() {
		defer r.Finish()
	}()
	r.Finish()
	r.Update(5)
	if finals != 1 {
		t.Errorf("final calls = %d, want 1", finals)
	}
}

func TestReporter_PanicRecovered(t *testing.T) {
	t.Parallel()
	r := New(func(int64, int64, bool) { panic("boom") }, 10, WithInterval(0))
	r.Update(1)
	r.Finish()
}

func TestReporter_NilIsNoop(t *testing.T) {
	t.Parallel()
	r := New(nil, 10)
	r.Update(1)
	r.Finish()
}

func TestWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	fn := Writer(&buf)
	fn(512, 2048, false)
	fn(2000, 2048, true)

	got := buf.String()
	if !strings.Contains(got, "Progress: 25% (512 B / 2.0 KiB)\r") {
		t.Errorf("missing intermediate line in %q", got)
	}
	if !strings.HasSuffix(got, "Progress: 100% (2.0 KiB / 2.0 KiB)\n") {
		t.Errorf("missing final line in %q", got)
	}
}
