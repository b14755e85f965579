// Package sector maps NACE Rev.2 industry codes to the coarse sector
// labels factories report their exposure shares against.
package sector

import "sort"

// Coarse sector labels.
const (
	Food         = "food"
	Textile      = "textile"
	Wood         = "wood_paper"
	Chemicals    = "chemicals"
	Minerals     = "minerals"
	Metals       = "metals"
	Electronics  = "electronics"
	Machinery    = "machinery"
	Automotive   = "automotive"
	Furniture    = "furniture_other"
	Energy       = "energy"
	Construction = "construction"
	Services     = "services"
	Unknown      = "unknown"
)

// prefixLabels maps 2-digit NACE prefixes to coarse labels.
// Source: NACE Rev.2 divisions, manufacturing-heavy grouping.
var prefixLabels = map[string]string{
	"10": Food, // Food products
	"11": Food, // Beverages
	"12": Food, // Tobacco

	"13": Textile, // Textiles
	"14": Textile, // Wearing apparel
	"15": Textile, // Leather

	"16": Wood, // Wood and cork
	"17": Wood, // Paper
	"18": Wood, // Printing

	"19": Chemicals, // Coke and refined petroleum
	"20": Chemicals, // Chemicals
	"21": Chemicals, // Pharmaceuticals
	"22": Chemicals, // Rubber and plastics

	"23": Minerals, // Other non-metallic mineral products

	"24": Metals, // Basic metals
	"25": Metals, // Fabricated metal products

	"26": Electronics, // Computer, electronic and optical
	"27": Electronics, // Electrical equipment

	"28": Machinery, // Machinery n.e.c.
	"33": Machinery, // Repair and installation of machinery

	"29": Automotive, // Motor vehicles
	"30": Automotive, // Other transport equipment

	"31": Furniture, // Furniture
	"32": Furniture, // Other manufacturing

	"35": Energy, // Electricity, gas, steam

	"41": Construction,
	"42": Construction,
	"43": Construction,
}

// Prefix returns the 2-digit division of a NACE code: the first two
// contiguous ASCII digits after any section letters ("C25.11" -> "25").
// Returns "" when the code has no such pair.
func Prefix(code string) string {
	for i := 0; i+1 < len(code); i++ {
		if isDigit(code[i]) && isDigit(code[i+1]) {
			return code[i : i+2]
		}
		if isDigit(code[i]) {
			return ""
		}
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Label returns the coarse sector label for a NACE code. Codes outside
// manufacturing, energy and construction fall into Services; unparseable
// codes map to Unknown.
func Label(code string) string {
	p := Prefix(code)
	if p == "" {
		return Unknown
	}
	if l, ok := prefixLabels[p]; ok {
		return l
	}
	return Services
}

// Labels returns every known label in sorted order.
func Labels() []string {
	seen := map[string]bool{Services: true, Unknown: true}
	for _, l := range prefixLabels {
		seen[l] = true
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// IsKnown reports whether the label is one Label can produce.
func IsKnown(label string) bool {
	for _, l := range Labels() {
		if l == label {
			return true
		}
	}
	return false
}
