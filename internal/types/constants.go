package types

// Standard physical parameters used by the calculation methods.
const (
	EarthRadiusKm = 6378.0

	// Atom masses [kg/mol]
	MolarMassH = 1.00790e-3
	MolarMassN = 14.00670e-3
	MolarMassC = 12.01115e-3
	MolarMassS = 32.06400e-3
	MolarMassO = 15.99940e-3

	// Molecule masses [kg/mol]
	MolarMassH2O = MolarMassH*2 + MolarMassO
	MolarMassNO  = MolarMassN + MolarMassO
	MolarMassNO2 = MolarMassN + MolarMassO*2
	MolarMassNH3 = MolarMassN + MolarMassH*3
	MolarMassSO2 = MolarMassS + MolarMassO*2

	// Avogadro number [mlc/mol]
	Avogadro = 6.02205e23

	// Converts a vertical column in mol/m2 to 1e15 molecules/cm2, the
	// unit satellite column products are commonly reported in.
	MolPerM2To1e15MoleculesPerCm2 = Avogadro / 1e4 / 1e15
)
