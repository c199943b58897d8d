// Package device holds the static catalog mapping a device identifier
// (by name or number) to its protocol version and user-application
// memory window.
package device

import (
	"fmt"
	"strconv"
)

// Spec describes one entry of the device catalog.
type Spec struct {
	ID              uint8
	Name            string
	ProtocolVersion uint8
	UserAppStart    uint32
	UserAppSize     uint32
	Note            string

	// Per-device time-estimate constants: a, b, c weight the flash,
	// eeprom, and ext-flash page counts respectively; k is the fixed
	// overhead added to every estimate.
	EstimateA, EstimateB, EstimateC, EstimateK float64
}

// Auto is the pseudo-entry requested when the caller wants the
// Orchestrator to discover the device id via handshake instead of
// requiring a match. Its ProtocolVersion is always 0, which no real
// device ever reports.
const Auto uint8 = 0

// catalog is keyed by numeric id; id 0 is reserved for Auto.
var catalog = []Spec{
	{
		ID:              0,
		Name:            "auto",
		ProtocolVersion: 0,
		Note:            "device id discovered via handshake",
	},
	{
		ID:              1,
		Name:            "ATSAME54_DEVB",
		ProtocolVersion: 1,
		UserAppStart:    0x00004000,
		UserAppSize:     0x000FC000,
		Note:            "Microchip ATSAME54 Xplained Pro",
		EstimateA:       0.23,
		EstimateB:       0.05,
		EstimateC:       0.30,
		EstimateK:       4.5,
	},
	{
		ID:              2,
		Name:            "NUM487KM_DEVB",
		ProtocolVersion: 1,
		UserAppStart:    0x00002000,
		UserAppSize:     0x0007E000,
		Note:            "Nuvoton M487 development board",
		EstimateA:       0.14,
		EstimateB:       0.05,
		EstimateC:       0.20,
		EstimateK:       3.3,
	},
}

// TypeError reports a device id or name with no catalog entry.
type TypeError struct {
	Requested string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("device: unknown device %q", e.Requested)
}

// ByID returns the catalog entry for id, or an error if id is not in
// the catalog.
func ByID(id uint8) (Spec, error) {
	for _, s := range catalog {
		if s.ID == id {
			return s, nil
		}
	}
	return Spec{}, &TypeError{Requested: strconv.Itoa(int(id))}
}

// Resolve parses s as either a decimal device id or a catalog name and
// returns the matching numeric id. It reports ok=false, with no error,
// when s matches nothing — callers that need a typed error should
// follow up with ByID.
func Resolve(s string) (id uint8, ok bool) {
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		for _, spec := range catalog {
			if spec.ID == uint8(n) {
				return uint8(n), true
			}
		}
		return 0, false
	}
	for _, spec := range catalog {
		if spec.Name == s {
			return spec.ID, true
		}
	}
	return 0, false
}

// All returns the full catalog in ascending id order, for the
// print-devices CLI subcommand.
func All() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// EstimateSeconds computes the per-device time estimate from
// Session Orchestrator step counts, per spec §4.6 step 6.
func (s Spec) EstimateSeconds(flashPages, eepromPages, extFlashPages int) float64 {
	return s.EstimateA*float64(flashPages) + s.EstimateB*float64(eepromPages) + s.EstimateC*float64(extFlashPages) + s.EstimateK
}
