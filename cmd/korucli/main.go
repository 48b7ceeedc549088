// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/device"
	log "github.com/sirupsen/logrus"
)

var (
	debug = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	open  = flag.Int("open", -1, "Open and close a device on the adapter with this index")
)

// adapterReport is one adapter as printed
type adapterReport struct {
	device.AdapterInfo
	Vendor     string `json:"VendorName"`
	APIVersion string `json:"APIVersionString"`
}

func report(inst device.Instance, w io.Writer) error {
	adapters := inst.Adapters()
	out := make([]adapterReport, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, adapterReport{
			AdapterInfo: a,
			Vendor:      a.Vendor(),
			APIVersion:  device.VersionString(a.APIVersion),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// probe opens a device on adapter and destroys it again.
func probe(inst device.Instance, adapter int, cfg core.RendererConfiguration) error {
	drv, err := inst.Open(adapter, device.DriverConfiguration{
		Extensions:     cfg.DeviceExtensions,
		DescriptorSets: cfg.DescriptorSets,
	})
	if err != nil {
		return err
	}
	info := drv.Adapter()
	log.WithFields(log.Fields{
		"adapter": adapter,
		"name":    info.Name,
		"vendor":  info.Vendor(),
	}).Info("device opened")
	drv.Destroy()
	return nil
}

func main() {
	flag.Parse()

	cfg, err := core.LoadConfiguration("")
	if err != nil {
		log.WithError(err).Fatal("configuration not loaded")
	}
	cfg.Instance.DebugMode = cfg.Instance.DebugMode || *debug

	inst, err := device.NewVulkanInstance(device.DefaultVulkanApplicationInfo, nil, cfg.Instance)
	if err != nil {
		log.WithError(err).Fatal("instance not created")
	}
	defer inst.Destroy()

	if *open >= 0 {
		if err := probe(inst, *open, cfg.Renderer); err != nil {
			log.WithError(err).Error("device not opened")
			return
		}
	}

	if err := report(inst, os.Stdout); err != nil {
		log.WithError(err).Error("adapters not written")
	}
}
