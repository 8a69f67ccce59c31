package manager

import (
	"fmt"
	"strings"

	"github.com/cutline-project/cutline-go/pkg/driver/cutter"
	"github.com/cutline-project/cutline-go/pkg/driver/hpgl"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// VendorGraphtec is the USB vendor id used by Graphtec and Silhouette cutters.
const VendorGraphtec uint16 = 0x0b4d

// USB-to-serial bridge chips commonly found in plotters.
var serialBridges = map[uint16]string{
	0x0403: "FTDI",
	0x067b: "Prolific",
	0x1a86: "CH340",
	0x10c4: "CP210x",
}

var (
	cutterKeywords  = []string{"silhouette", "graphtec", "cricut"}
	plotterKeywords = []string{"hpgl", "hp-gl", "plotter", "roland", "vinyl cutter"}
)

// Identify guesses the driver for a device from its vendor id and the
// manufacturer and product strings.
//
// Vendor 0x0b4d and cutter brand names select the cutter driver. Plotter
// keywords, or a known USB-serial bridge on a serial port, select the HPGL
// driver. Anything else is unsupported.
func Identify(desc transport.DeviceDescriptor) Identification {
	id := Identification{Name: deviceName(desc)}

	text := strings.ToLower(desc.Manufacturer + " " + desc.Product)
	_, bridge := serialBridges[desc.VendorID]

	switch {
	case desc.VendorID == VendorGraphtec, containsAny(text, cutterKeywords):
		id.DriverID = cutter.ID
	case containsAny(text, plotterKeywords):
		id.DriverID = hpgl.ID
	case desc.Kind == transport.KindSerial && bridge:
		id.DriverID = hpgl.ID
	}
	id.Supported = id.DriverID != ""
	return id
}

func deviceName(desc transport.DeviceDescriptor) string {
	name := strings.TrimSpace(desc.Manufacturer + " " + desc.Product)
	if name != "" {
		return name
	}
	if chip, ok := serialBridges[desc.VendorID]; ok {
		return chip + " serial adapter"
	}
	if desc.VendorID != 0 || desc.ProductID != 0 {
		return fmt.Sprintf("%s device %04x:%04x", desc.Kind, desc.VendorID, desc.ProductID)
	}
	return desc.Address
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
