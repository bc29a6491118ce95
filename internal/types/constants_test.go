package types

import (
	"math"
	"testing"
)

func TestColumnUnitConversion(t *testing.T) {
	// One mol/m2 is Avogadro molecules per 1e4 cm2.
	if got := MolPerM2To1e15MoleculesPerCm2; math.Abs(got-6.02205e4) > 1e-1 {
		t.Errorf("MolPerM2To1e15MoleculesPerCm2 = %g, want about 6.02205e4", got)
	}
}

func TestMolarMasses(t *testing.T) {
	if got := MolarMassNO2; math.Abs(got-46.0055e-3) > 1e-5 {
		t.Errorf("MolarMassNO2 = %g, want about 46.0055e-3", got)
	}
}
