// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import "fmt"

// PCI vendor identifiers of known adapter vendors.
const (
	VendorAMD      = 4098
	VendorImgTec   = 4112
	VendorNVIDIA   = 4318
	VendorARM      = 5045
	VendorQualcomm = 20803
	VendorIntel    = 32902
)

var vendorNames = map[int]string{
	VendorAMD:      "AMD",
	VendorImgTec:   "ImgTec",
	VendorNVIDIA:   "NVIDIA",
	VendorARM:      "ARM",
	VendorQualcomm: "Qualcomm",
	VendorIntel:    "Intel",
}

// VendorName returns a human readable vendor name for a PCI vendor ID.
func VendorName(id int) string {
	if name, ok := vendorNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", id)
}

// VersionString renders a packed API version as major.minor.patch.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}
