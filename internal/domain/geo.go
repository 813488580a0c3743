package domain

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Geo is a WGS-84 latitude/longitude pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// maxJitterDegrees bounds each jitter axis before longitude scaling.
const maxJitterDegrees = 0.25

// jitterBuckets splits the identity hash into two quasi-independent
// pseudo-random fractions.
const jitterBuckets = 2000

// Jitter applies a deterministic positional offset keyed by the event
// identity, so co-located events spread out without repeated ingestion
// moving them. Each axis offset is within [-0.25, +0.25] degrees; the
// longitude offset is scaled by 1/max(0.5, cos(lat)) to compensate for
// longitude compression away from the equator (scale capped at 2x). No
// wraparound or clamping near the poles or antimeridian is applied.
func Jitter(lat, lon float64, identityKey string) (float64, float64) {
	h := identityHash(identityKey)

	f1 := float64(h%jitterBuckets) / jitterBuckets
	f2 := float64((h/jitterBuckets)%jitterBuckets) / jitterBuckets

	latOffset := (f1 - 0.5) * 2 * maxJitterDegrees
	lonOffset := (f2 - 0.5) * 2 * maxJitterDegrees

	scale := 1 / math.Max(0.5, math.Cos(lat*math.Pi/180))

	return lat + latOffset, lon + lonOffset*scale
}

// identityHash derives a non-negative 31-bit value from a polynomial rolling
// hash over the key's characters, truncated to signed 32-bit.
func identityHash(key string) int64 {
	var h int32
	for _, c := range key {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// Centroids resolves country and region names to a representative
// coordinate. Unknown names resolve to nothing: the caller must skip the
// event rather than default to (0,0), which would stack unrelated events in
// the ocean.
type Centroids struct {
	table map[string]Geo
}

// NewCentroids returns a resolver backed by the built-in country table.
func NewCentroids() *Centroids {
	c := &Centroids{table: make(map[string]Geo, len(countryCentroids)+len(countryAliases))}
	for name, g := range countryCentroids {
		c.table[normalizeCountry(name)] = g
	}
	for alias, canonical := range countryAliases {
		if g, ok := countryCentroids[canonical]; ok {
			c.table[normalizeCountry(alias)] = g
		}
	}
	return c
}

// Resolve maps a country or region name to its centroid.
func (c *Centroids) Resolve(name string) (Geo, bool) {
	g, ok := c.table[normalizeCountry(name)]
	return g, ok
}

// LoadOverrides merges centroid entries from a YAML file of the form
//
//	Country Name: [lat, lon]
//
// on top of the built-in table. Entries replace same-named built-ins.
func (c *Centroids) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read centroid overrides: %w", err)
	}

	var entries map[string][]float64
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse centroid overrides: %w", err)
	}

	for name, coords := range entries {
		if len(coords) != 2 {
			return fmt.Errorf("centroid override %q: want [lat, lon], got %d values", name, len(coords))
		}
		c.table[normalizeCountry(name)] = Geo{Lat: coords[0], Lon: coords[1]}
	}
	return nil
}

func normalizeCountry(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// countryCentroids is the fixed country-centroid table for providers that
// report country-level granularity only. Values are approximate geographic
// centers, not capitals.
var countryCentroids = map[string]Geo{
	"Afghanistan":                      {Lat: 33.9, Lon: 67.7},
	"Algeria":                          {Lat: 28.0, Lon: 1.7},
	"Angola":                           {Lat: -11.2, Lon: 17.9},
	"Argentina":                        {Lat: -38.4, Lon: -63.6},
	"Australia":                        {Lat: -25.3, Lon: 133.8},
	"Bangladesh":                       {Lat: 23.7, Lon: 90.4},
	"Bolivia":                          {Lat: -16.3, Lon: -63.6},
	"Brazil":                           {Lat: -14.2, Lon: -51.9},
	"Burkina Faso":                     {Lat: 12.2, Lon: -1.6},
	"Cambodia":                         {Lat: 12.6, Lon: 105.0},
	"Cameroon":                         {Lat: 7.4, Lon: 12.4},
	"Canada":                           {Lat: 56.1, Lon: -106.3},
	"Chad":                             {Lat: 15.5, Lon: 18.7},
	"Chile":                            {Lat: -35.7, Lon: -71.5},
	"China":                            {Lat: 35.9, Lon: 104.2},
	"Colombia":                         {Lat: 4.6, Lon: -74.3},
	"Cuba":                             {Lat: 21.5, Lon: -77.8},
	"Democratic Republic of the Congo": {Lat: -4.0, Lon: 21.8},
	"Ecuador":                          {Lat: -1.8, Lon: -78.2},
	"Egypt":                            {Lat: 26.8, Lon: 30.8},
	"El Salvador":                      {Lat: 13.8, Lon: -88.9},
	"Ethiopia":                         {Lat: 9.1, Lon: 40.5},
	"Fiji":                             {Lat: -17.7, Lon: 178.1},
	"France":                           {Lat: 46.2, Lon: 2.2},
	"Germany":                          {Lat: 51.2, Lon: 10.5},
	"Greece":                           {Lat: 39.1, Lon: 21.8},
	"Guatemala":                        {Lat: 15.8, Lon: -90.2},
	"Haiti":                            {Lat: 19.0, Lon: -72.3},
	"Honduras":                         {Lat: 15.2, Lon: -86.2},
	"India":                            {Lat: 20.6, Lon: 79.0},
	"Indonesia":                        {Lat: -0.8, Lon: 113.9},
	"Iran":                             {Lat: 32.4, Lon: 53.7},
	"Iraq":                             {Lat: 33.2, Lon: 43.7},
	"Italy":                            {Lat: 41.9, Lon: 12.6},
	"Japan":                            {Lat: 36.2, Lon: 138.3},
	"Kenya":                            {Lat: 0.0, Lon: 37.9},
	"Madagascar":                       {Lat: -18.8, Lon: 47.0},
	"Malawi":                           {Lat: -13.3, Lon: 34.3},
	"Malaysia":                         {Lat: 4.2, Lon: 102.0},
	"Mali":                             {Lat: 17.6, Lon: -4.0},
	"Mexico":                           {Lat: 23.6, Lon: -102.6},
	"Mozambique":                       {Lat: -18.7, Lon: 35.5},
	"Myanmar":                          {Lat: 21.9, Lon: 95.9},
	"Nepal":                            {Lat: 28.4, Lon: 84.1},
	"New Zealand":                      {Lat: -40.9, Lon: 174.9},
	"Nicaragua":                        {Lat: 12.9, Lon: -85.2},
	"Niger":                            {Lat: 17.6, Lon: 8.1},
	"Nigeria":                          {Lat: 9.1, Lon: 8.7},
	"Pakistan":                         {Lat: 30.4, Lon: 69.3},
	"Papua New Guinea":                 {Lat: -6.3, Lon: 143.9},
	"Peru":                             {Lat: -9.2, Lon: -75.0},
	"Philippines":                      {Lat: 12.9, Lon: 121.8},
	"Somalia":                          {Lat: 5.2, Lon: 46.2},
	"South Africa":                     {Lat: -30.6, Lon: 22.9},
	"South Sudan":                      {Lat: 6.9, Lon: 31.3},
	"Spain":                            {Lat: 40.5, Lon: -3.7},
	"Sri Lanka":                        {Lat: 7.9, Lon: 80.8},
	"Sudan":                            {Lat: 12.9, Lon: 30.2},
	"Syria":                            {Lat: 34.8, Lon: 39.0},
	"Thailand":                         {Lat: 15.9, Lon: 100.99},
	"Turkey":                           {Lat: 39.0, Lon: 35.2},
	"Uganda":                           {Lat: 1.4, Lon: 32.3},
	"Ukraine":                          {Lat: 48.4, Lon: 31.2},
	"United States":                    {Lat: 37.1, Lon: -95.7},
	"Vanuatu":                          {Lat: -15.4, Lon: 166.96},
	"Venezuela":                        {Lat: 6.4, Lon: -66.6},
	"Vietnam":                          {Lat: 14.1, Lon: 108.3},
	"Yemen":                            {Lat: 15.6, Lon: 48.5},
	"Zambia":                           {Lat: -13.1, Lon: 27.8},
	"Zimbabwe":                         {Lat: -19.0, Lon: 29.2},
}

// countryAliases maps common provider spellings onto table entries.
var countryAliases = map[string]string{
	"USA":                                 "United States",
	"United States of America":            "United States",
	"DR Congo":                            "Democratic Republic of the Congo",
	"Congo, Democratic Republic":          "Democratic Republic of the Congo",
	"DRC":                                 "Democratic Republic of the Congo",
	"Iran (Islamic Republic of)":          "Iran",
	"Syrian Arab Republic":                "Syria",
	"Viet Nam":                            "Vietnam",
	"Türkiye":                             "Turkey",
	"Bolivia (Plurinational State of)":    "Bolivia",
	"Venezuela (Bolivarian Republic of)":  "Venezuela",
	"Myanmar (Burma)":                     "Myanmar",
}
