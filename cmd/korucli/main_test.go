// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	"github.com/devblok/korugs/device/devicetest"
)

func TestReport(t *testing.T) {
	c := qt.New(t)
	inst := devicetest.NewInstance()
	second := devicetest.DefaultAdapter()
	second.Index = 1
	second.VendorID = device.VendorIntel
	second.Name = "Second Adapter"
	inst.AdapterList = append(inst.AdapterList, second)

	var buf bytes.Buffer
	c.Assert(report(inst, &buf), qt.IsNil)

	var got []map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &got), qt.IsNil)
	c.Assert(got, qt.HasLen, 2)
	c.Assert(got[0]["Name"], qt.Equals, "Fake Adapter")
	c.Assert(got[0]["VendorName"], qt.Equals, "NVIDIA")
	c.Assert(got[0]["APIVersionString"], qt.Equals, "1.0.0")
	c.Assert(got[1]["VendorName"], qt.Equals, "Intel")
}

func TestProbe(t *testing.T) {
	c := qt.New(t)
	inst := devicetest.NewInstance()
	cfg := core.DefaultConfiguration().Renderer

	c.Assert(probe(inst, 0, cfg), qt.IsNil)
	c.Assert(inst.Drivers, qt.HasLen, 1)
	c.Assert(inst.Drivers[0].Destroyed(), qt.IsTrue)

	c.Assert(probe(inst, 3, cfg), qt.ErrorIs, core.ErrInvalidAdapter)
}
