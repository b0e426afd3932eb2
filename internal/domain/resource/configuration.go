package resource

import "fmt"

// TankState describes the expected resin tank arrangement.
type TankState int

const (
	// TankUnknown means the tank arrangement does not matter.
	TankUnknown TankState = iota
	// TankRemoved expects the tank to be out of the printer.
	TankRemoved
	// TankInstalled expects the tank to be mounted.
	TankInstalled
)

// String returns the state name.
func (s TankState) String() string {
	switch s {
	case TankRemoved:
		return "tank_removed"
	case TankInstalled:
		return "tank_installed"
	default:
		return "tank_unknown"
	}
}

// PlatformState describes the expected print platform arrangement.
type PlatformState int

const (
	// PlatformUnknown means the platform arrangement does not matter.
	PlatformUnknown PlatformState = iota
	// PlatformRemoved expects the platform to be out of the printer.
	PlatformRemoved
	// PlatformInstalled expects the platform to be mounted.
	PlatformInstalled
	// PlatformPrint expects the platform mounted and in print position.
	PlatformPrint
)

// String returns the state name.
func (s PlatformState) String() string {
	switch s {
	case PlatformRemoved:
		return "platform_removed"
	case PlatformInstalled:
		return "platform_installed"
	case PlatformPrint:
		return "platform_print"
	default:
		return "platform_unknown"
	}
}

// Configuration declares the physical arrangement a phase or check
// expects. A zero value means "don't care" in both fields.
type Configuration struct {
	Tank     TankState
	Platform PlatformState
}

// IsCompatible reports whether two configurations can coexist: every
// field that both sides specify must agree; an Unknown field on either
// side matches anything.
func (c Configuration) IsCompatible(other Configuration) bool {
	if c.Tank != TankUnknown && other.Tank != TankUnknown && c.Tank != other.Tank {
		return false
	}
	if c.Platform != PlatformUnknown && other.Platform != PlatformUnknown && c.Platform != other.Platform {
		return false
	}
	return true
}

// String returns a readable form for logs and errors.
func (c Configuration) String() string {
	return fmt.Sprintf("configuration(%s, %s)", c.Tank, c.Platform)
}
