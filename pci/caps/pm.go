package caps

import (
	"fmt"
	"strings"

	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/field"
	"github.com/pkg/errors"
)

// PCI Bus Power Management Interface Specification 1.2
// Section 3.2.3 PMC - Power Management Capabilities

const (
	pmcVersionMask     = 0b111
	pmcPMEClock        = 1 << 3
	pmcImmediateReady  = 1 << 4
	pmcDSI             = 1 << 5
	pmcAuxCurrentShift = 6
	pmcAuxCurrentMask  = 0b111
	pmcD1              = 1 << 9
	pmcD2              = 1 << 10
	pmcPMEShift        = 11
	pmcPMEMask         = 0b11111
)

// PME support bits, after shifting the field down.
const (
	PMED0 uint8 = 1 << iota
	PMED1
	PMED2
	PMED3Hot
	PMED3Cold
)

var auxCurrent = [8]int{0, 55, 100, 160, 220, 270, 320, 375}

// PowerManagement is the decoded PMC register of capability 0x01.
type PowerManagement struct {
	Version            uint8
	PMEClock           bool
	ImmediateReadiness bool
	DSI                bool
	// AuxCurrent is the raw 3-bit field, see AuxCurrentMilliamps.
	AuxCurrent uint8
	D1         bool
	D2         bool
	PMESupport uint8

	offset uint8
}

var _ Capability = &PowerManagement{}

func decodePowerManagement(a access.Accessor, offset uint8) (Capability, error) {
	b, err := a.Read(uint64(offset)+2, 2)
	if err != nil {
		return nil, errors.Wrapf(err, "power management capability at %#x", offset)
	}
	pmc, err := field.Le16(b, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "power management capability at %#x", offset)
	}
	return ParsePowerManagement(offset, pmc), nil
}

// ParsePowerManagement decodes the PMC word of a power management capability
// located at offset.
func ParsePowerManagement(offset uint8, pmc uint16) *PowerManagement {
	return &PowerManagement{
		Version:            uint8(pmc & pmcVersionMask),
		PMEClock:           pmc&pmcPMEClock != 0,
		ImmediateReadiness: pmc&pmcImmediateReady != 0,
		DSI:                pmc&pmcDSI != 0,
		AuxCurrent:         uint8(pmc >> pmcAuxCurrentShift & pmcAuxCurrentMask),
		D1:                 pmc&pmcD1 != 0,
		D2:                 pmc&pmcD2 != 0,
		PMESupport:         uint8(pmc >> pmcPMEShift & pmcPMEMask),
		offset:             offset,
	}
}

func (p *PowerManagement) ID() uint16     { return uint16(PowerManagementID) }
func (p *PowerManagement) Offset() uint64 { return uint64(p.offset) }
func (p *PowerManagement) Extended() bool { return false }

// AuxCurrentMilliamps is the 3.3Vaux current requirement in mA.
func (p *PowerManagement) AuxCurrentMilliamps() int {
	return auxCurrent[p.AuxCurrent&pmcAuxCurrentMask]
}

func (p *PowerManagement) pme() string {
	states := []string{
		flag("D0", p.PMESupport&PMED0 != 0),
		flag("D1", p.PMESupport&PMED1 != 0),
		flag("D2", p.PMESupport&PMED2 != 0),
		flag("D3hot", p.PMESupport&PMED3Hot != 0),
		flag("D3cold", p.PMESupport&PMED3Cold != 0),
	}
	return "PME(" + strings.Join(states, ",") + ")"
}

func (p *PowerManagement) Render(verbosity int) string {
	s := fmt.Sprintf("Power Management version %d", p.Version)
	if verbosity >= 2 {
		s += fmt.Sprintf("\n\t\tFlags: %s %s %s %s AuxCurrent=%dmA %s",
			flag("PMEClk", p.PMEClock),
			flag("DSI", p.DSI),
			flag("D1", p.D1),
			flag("D2", p.D2),
			p.AuxCurrentMilliamps(),
			p.pme())
	}
	return s
}
