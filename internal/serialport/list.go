package serialport

import (
	"sort"

	"codeberg.org/mutker/serialplot/internal/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// List returns the serial ports present on the system, sorted by name. USB
// details are filled in where the platform enumerator can provide them.
func List() ([]PortInfo, error) {
	errFactory := errors.New()

	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Fall back to bare names; some platforms lack detailed enumeration.
		names, nameErr := serial.GetPortsList()
		if nameErr != nil {
			return nil, errFactory.Wrap(ErrListFailed, nameErr)
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		sortPorts(ports)
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sortPorts(ports)

	return ports, nil
}

func sortPorts(ports []PortInfo) {
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
}
