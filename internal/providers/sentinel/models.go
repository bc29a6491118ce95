package sentinel

import (
	"encoding/json"
	"strings"
	"time"
)

// Product is one satellite data product offered by the hub.
type Product struct {
	UUID          string
	Title         string
	MD5           string
	Size          string // human readable, e.g. "430.98 MB"
	BeginPosition time.Time
}

// ProcessingMode extracts the processing stream from a product title,
// e.g. "OFFL" from "S5P_OFFL_L2__NO2____20190601...".
func (p Product) ProcessingMode() string {
	parts := strings.Split(p.Title, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Product types offered for Sentinel-5 Precursor.
var ProductTypes = []string{
	"L1B_IR_SIR", "L1B_IR_UVN", "L1B_RA_BD1", "L1B_RA_BD2", "L1B_RA_BD3",
	"L1B_RA_BD4", "L1B_RA_BD5", "L1B_RA_BD6", "L1B_RA_BD7", "L1B_RA_BD8",
	"L2__AER_AI", "L2__AER_LH", "L2__CO____", "L2__HCHO__", "L2__CH4",
	"L2__CLOUD_", "L2__NO2___", "L2__NP_BD3", "L2__NP_BD6", "L2__NP_BD7",
	"L2__O3_TCL", "L2__O3____", "L2__SO2___",
}

// searchResponse is the hub's OpenSearch JSON envelope. The entry list
// collapses to a single object when only one product matches, which the
// custom unmarshalling below papers over.
type searchResponse struct {
	Feed struct {
		Entries entryList `json:"entry"`
	} `json:"feed"`
}

type entry struct {
	Title string      `json:"title"`
	ID    string      `json:"id"`
	Str   []namedItem `json:"str"`
	Date  []namedItem `json:"date"`
}

type namedItem struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (e entry) str(name string) string {
	for _, item := range e.Str {
		if item.Name == name {
			return item.Content
		}
	}
	return ""
}

func (e entry) date(name string) string {
	for _, item := range e.Date {
		if item.Name == name {
			return item.Content
		}
	}
	return ""
}

type entryList []entry

func (l *entryList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]entry)(l))
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*l = entryList{e}
	return nil
}
