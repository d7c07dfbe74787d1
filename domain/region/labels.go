// Package region holds the structure_color code table shared by every report
// and plot collaborator. The codes and names must stay verbatim: downstream
// plot labeling matches on them.
package region

import "strings"

// Region is one anatomical tumor region keyed by its hexadecimal color code
type Region struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var regions = []Region{
	{Code: "218FA5", Label: "Leading Edge"},
	{Code: "D104D0", Label: "Infiltrating Tumour"},
	{Code: "05D004", Label: "Cellular Tumor"},
	{Code: "43D1F8", Label: "Perinecrotic Zone"},
	{Code: "05D0AA", Label: "Pseudopalisading"},
	{Code: "FF6600", Label: "HP Blood Vessel"},
	{Code: "FF3300", Label: "MV Proliferation"},
}

var byCode = func() map[string]string {
	m := make(map[string]string, len(regions))
	for _, r := range regions {
		m[r.Code] = r.Label
	}
	return m
}()

// All returns the region table in its canonical order
func All() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// Label maps a color code to its region name, returning the code unchanged
// when it is not one of the known regions.
func Label(code string) string {
	if l, ok := byCode[strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(code), "#"))]; ok {
		return l
	}
	return code
}

// Labels maps each code in order
func Labels(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = Label(c)
	}
	return out
}

// Known reports whether code is one of the seven region codes
func Known(code string) bool {
	return Label(code) != code
}
