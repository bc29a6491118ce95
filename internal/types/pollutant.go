package types

import (
	"fmt"
	"strings"
)

// Pollutant identifies an air pollutant a calculation method can estimate.
type Pollutant int

const (
	PollutantNO2 Pollutant = iota + 1
	PollutantNOx
	PollutantSO2
	PollutantNH3
	PollutantPM25
	PollutantCO
	PollutantO3
	PollutantCH4
)

// Pollutants lists all known pollutants in display order.
func Pollutants() []Pollutant {
	return []Pollutant{
		PollutantNO2, PollutantNOx, PollutantSO2, PollutantNH3,
		PollutantPM25, PollutantCO, PollutantO3, PollutantCH4,
	}
}

func (p Pollutant) String() string {
	switch p {
	case PollutantNO2:
		return "NO2"
	case PollutantNOx:
		return "NOx"
	case PollutantSO2:
		return "SO2"
	case PollutantNH3:
		return "NH3"
	case PollutantPM25:
		return "PM2.5"
	case PollutantCO:
		return "CO"
	case PollutantO3:
		return "O3"
	case PollutantCH4:
		return "CH4"
	default:
		return fmt.Sprintf("Pollutant(%d)", int(p))
	}
}

// MolarMassKg returns the molar mass in kg/mol. The second return value is
// false for pollutants that are not a single molecular species (NOx, PM2.5).
func (p Pollutant) MolarMassKg() (float64, bool) {
	switch p {
	case PollutantNO2:
		return MolarMassNO2, true
	case PollutantSO2:
		return MolarMassSO2, true
	case PollutantNH3:
		return MolarMassNH3, true
	default:
		return 0, false
	}
}

// ProductType returns the Sentinel-5P level-2 product type carrying this
// pollutant, or false if no S5P product exists for it.
func (p Pollutant) ProductType() (string, bool) {
	switch p {
	case PollutantNO2, PollutantNOx:
		return "L2__NO2___", true
	case PollutantSO2:
		return "L2__SO2___", true
	case PollutantCO:
		return "L2__CO____", true
	case PollutantO3:
		return "L2__O3____", true
	case PollutantCH4:
		return "L2__CH4___", true
	default:
		return "", false
	}
}

// ParsePollutant converts a name like "NO2" or "pm2.5" to a Pollutant.
func ParsePollutant(s string) (Pollutant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NO2":
		return PollutantNO2, nil
	case "NOX":
		return PollutantNOx, nil
	case "SO2":
		return PollutantSO2, nil
	case "NH3":
		return PollutantNH3, nil
	case "PM2.5", "PM2_5", "PM25":
		return PollutantPM25, nil
	case "CO":
		return PollutantCO, nil
	case "O3":
		return PollutantO3, nil
	case "CH4":
		return PollutantCH4, nil
	default:
		return 0, fmt.Errorf("unknown pollutant %q", s)
	}
}
