package types

import "fmt"

// GNFR is an EMEP "Gridding Nomenclature For Reporting" emission sector.
type GNFR int

const (
	GNFRPublicPower GNFR = iota + 1
	GNFRIndustrialComb
	GNFRSmallComb
	GNFRIndProcess
	GNFRFugitive
	GNFRSolvents
	GNFRRoadRail
	GNFRShipping
	GNFROffRoadMob
	GNFRAviLTO
	GNFRCivilAviCruise
	GNFROtherWasteDisp
	GNFRWasteWater
	GNFRWasteIncin
	GNFRAgriLivestock
	GNFRAgriOther
	GNFRAgriWastes
	GNFROther
	GNFRNatural
	GNFRIntAviCruise
	GNFRMemo
)

var gnfrNames = map[GNFR]string{
	GNFRPublicPower:    "A_PublicPower",
	GNFRIndustrialComb: "B_IndustrialComb",
	GNFRSmallComb:      "C_SmallComb",
	GNFRIndProcess:     "D_IndProcess",
	GNFRFugitive:       "E_Fugitive",
	GNFRSolvents:       "F_Solvents",
	GNFRRoadRail:       "G_RoadRail",
	GNFRShipping:       "H_Shipping",
	GNFROffRoadMob:     "I_OffRoadMob",
	GNFRAviLTO:         "J_AviLTO",
	GNFRCivilAviCruise: "K_CivilAviCruise",
	GNFROtherWasteDisp: "L_OtherWasteDisp",
	GNFRWasteWater:     "M_WasteWater",
	GNFRWasteIncin:     "N_WasteIncin",
	GNFRAgriLivestock:  "O_AgriLivestock",
	GNFRAgriOther:      "P_AgriOther",
	GNFRAgriWastes:     "Q_AgriWastes",
	GNFROther:          "R_Other",
	GNFRNatural:        "S_Natural",
	GNFRIntAviCruise:   "T_IntAviCruise",
	GNFRMemo:           "z_Memo",
}

// Sectors lists all GNFR sectors in reporting order (A through T plus memo).
func Sectors() []GNFR {
	sectors := make([]GNFR, 0, len(gnfrNames))
	for s := GNFRPublicPower; s <= GNFRMemo; s++ {
		sectors = append(sectors, s)
	}
	return sectors
}

func (s GNFR) String() string {
	if name, ok := gnfrNames[s]; ok {
		return name
	}
	return fmt.Sprintf("GNFR(%d)", int(s))
}
