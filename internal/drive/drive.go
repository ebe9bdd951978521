// Package drive parses sensor paths into structured drive identity and builds
// the per-drive records held by the correlator state.
package drive

import "strings"

// NotAvailable is the documented default for optional inventory attributes
// that were absent from the sensor message.
const NotAvailable = "N/A"

// SentinelPath is the synthesized drive-manager path used for identity
// discovery events whose drive has no inventory record yet.
const SentinelPath = "HPIdataNotAvailable/disk/-1/status"

// Identity is the structured form of a slash-delimited sensor path.
type Identity struct {
	Enclosure string `json:"enclosure"`
	Slot      string `json:"slot"`
	Leaf      string `json:"leaf,omitempty"`
}

// ParseManagerPath parses a drive-manager sensor path of the form
// [enclosure]/disk/[slot]/[field]. Paths with fewer than four segments are
// rejected; the caller must drop the event.
func ParseManagerPath(path string) (Identity, bool) {
	segs := strings.Split(path, "/")
	if len(segs) < 4 {
		return Identity{}, false
	}
	return Identity{Enclosure: segs[0], Slot: segs[2], Leaf: segs[3]}, true
}

// ParseInventoryPath parses an inventory sensor path of the form
// [enclosure]/disk/[slot]. Paths with fewer than three segments are rejected.
func ParseInventoryPath(path string) (Identity, bool) {
	segs := strings.Split(path, "/")
	if len(segs) < 3 {
		return Identity{}, false
	}
	return Identity{Enclosure: segs[0], Slot: segs[2]}, true
}

// SynthesizedPath derives the drive-manager path equivalent of an inventory
// record's location.
func SynthesizedPath(enclosure, slot string) string {
	return enclosure + "/disk/" + slot + "/status"
}

// Attributes are the inventory-only fields of a drive. Zero values are
// replaced with NotAvailable at record construction.
type Attributes struct {
	Drawer         string `json:"drawer"`
	Location       string `json:"location"`
	Manufacturer   string `json:"manufacturer"`
	ProductName    string `json:"productName"`
	ProductVersion string `json:"productVersion"`
	WWN            string `json:"wwn"`
}

func (a Attributes) withDefaults() Attributes {
	def := func(s string) string {
		if s == "" {
			return NotAvailable
		}
		return s
	}
	return Attributes{
		Drawer:         def(a.Drawer),
		Location:       def(a.Location),
		Manufacturer:   def(a.Manufacturer),
		ProductName:    def(a.ProductName),
		ProductVersion: def(a.ProductVersion),
		WWN:            def(a.WWN),
	}
}

// Record is the unified per-drive value object built from either sensor
// source. A Record only exists for paths that parsed successfully; it is
// never mutated after construction, only replaced in the state store.
type Record struct {
	HostID       string     `json:"host_id"`
	Path         string     `json:"path"`
	Status       string     `json:"status"`
	SerialNumber string     `json:"serial_number"`
	Identity     Identity   `json:"identity"`
	Attrs        Attributes `json:"attributes"`
}

// NewManagerRecord builds a record from a drive-manager event. The second
// return is false when the path does not parse; no record exists in that case.
func NewManagerRecord(hostID, path, status, serial string) (Record, bool) {
	id, ok := ParseManagerPath(path)
	if !ok {
		return Record{}, false
	}
	return Record{
		HostID:       hostID,
		Path:         path,
		Status:       status,
		SerialNumber: serial,
		Identity:     id,
		Attrs:        Attributes{}.withDefaults(),
	}, true
}

// NewInventoryRecord builds a record from an inventory (HPI) event, applying
// the NotAvailable default to absent attributes.
func NewInventoryRecord(hostID, path, status, serial string, attrs Attributes) (Record, bool) {
	id, ok := ParseInventoryPath(path)
	if !ok {
		return Record{}, false
	}
	return Record{
		HostID:       hostID,
		Path:         path,
		Status:       status,
		SerialNumber: serial,
		Identity:     id,
		Attrs:        attrs.withDefaults(),
	}, true
}

// AsManager derives the drive-manager equivalent of an inventory record under
// a synthesized path. Every inventory record must be expressible this way; a
// false return means the event carries inconsistent identity and must be
// dropped whole.
func (r Record) AsManager() (Record, bool) {
	return NewManagerRecord(r.HostID, SynthesizedPath(r.Identity.Enclosure, r.Identity.Slot), r.Status, r.SerialNumber)
}
