package rules

import (
	"fmt"
	"strings"
)

// Zone identifies one of the five placement slots a player controls.
type Zone string

const (
	ZoneTop   Zone = "top"
	ZoneLeft  Zone = "left"
	ZoneRight Zone = "right"
	ZoneHelp  Zone = "help"
	ZoneSP    Zone = "sp"
)

// zoneOrder is the index order used by the action contract (0=top ... 4=sp).
var zoneOrder = []Zone{ZoneTop, ZoneLeft, ZoneRight, ZoneHelp, ZoneSP}

// CharacterZones are the three slots that score power in a leader battle.
var CharacterZones = []Zone{ZoneTop, ZoneLeft, ZoneRight}

// ZoneFromIndex maps an action zone index to its zone.
func ZoneFromIndex(idx int) (Zone, bool) {
	if idx < 0 || idx >= len(zoneOrder) {
		return "", false
	}
	return zoneOrder[idx], true
}

// Index returns the action index of the zone, or -1 when unknown.
func (z Zone) Index() int {
	for i, candidate := range zoneOrder {
		if candidate == z {
			return i
		}
	}
	return -1
}

// IsCharacter reports whether the zone is a top/left/right slot.
func (z Zone) IsCharacter() bool {
	return z == ZoneTop || z == ZoneLeft || z == ZoneRight
}

// IsUtility reports whether the zone is the help or sp slot.
func (z Zone) IsUtility() bool {
	return z == ZoneHelp || z == ZoneSP
}

// Valid reports whether z is one of the five known zones.
func (z Zone) Valid() bool {
	return z.Index() >= 0
}

func (z Zone) String() string {
	if z == "" {
		return "UNKNOWN_ZONE"
	}
	return string(z)
}

// AllZones returns the five zones in action index order.
func AllZones() []Zone {
	out := make([]Zone, len(zoneOrder))
	copy(out, zoneOrder)
	return out
}

// ParseZone converts a zone name to a Zone. "sky" is accepted for top.
func ParseZone(name string) (Zone, error) {
	z := Zone(strings.ToLower(strings.TrimSpace(name)))
	if z == "sky" {
		return ZoneTop, nil
	}
	if !z.Valid() {
		return "", fmt.Errorf("unknown zone %q", name)
	}
	return z, nil
}
