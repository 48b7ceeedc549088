// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
)

func TestTime(t *testing.T) {
	c := qt.New(t)
	ts := core.NewTime(core.TimeConfiguration{FramesPerSecond: 1000, EventPollDelay: 1})
	defer ts.Stop()
	c.Assert(ts.Fps(), qt.Equals, 1000)

	select {
	case <-ts.FpsTicker().C:
	case <-time.After(time.Second):
		c.Fatal("fps ticker did not tick")
	}
	select {
	case <-ts.EventTicker().C:
	case <-time.After(time.Second):
		c.Fatal("event ticker did not tick")
	}

	for i := 0; i < 10; i++ {
		ts.Frame()
	}
	time.Sleep(10 * time.Millisecond)
	c.Assert(ts.MeasuredFps() > 0, qt.IsTrue)
}

func TestTimeUnlimited(t *testing.T) {
	c := qt.New(t)
	// zero values fall back to the shortest intervals
	ts := core.NewTime(core.TimeConfiguration{})
	defer ts.Stop()
	c.Assert(ts.Fps(), qt.Equals, 0)
	c.Assert(ts.MeasuredFps(), qt.Equals, float64(0))
}
