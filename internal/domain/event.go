package domain

import (
	"encoding/json"
	"time"
)

// SeverityBand is the coarse severity bucket. Bands are ordered
// low < medium < high and each owns a closed numeric sub-range.
type SeverityBand string

const (
	BandLow    SeverityBand = "low"
	BandMedium SeverityBand = "medium"
	BandHigh   SeverityBand = "high"
)

// Range returns the band's closed numeric sub-range [min, max].
func (b SeverityBand) Range() (int, int) {
	switch b {
	case BandLow:
		return 1, 3
	case BandMedium:
		return 4, 6
	default:
		return 7, 10
	}
}

// Midpoint returns the default score used when no usable base score exists.
func (b SeverityBand) Midpoint() int {
	switch b {
	case BandLow:
		return 2
	case BandMedium:
		return 5
	default:
		return 8
	}
}

// Event is the canonical unit stored by the pipeline. The identifier and the
// bookkeeping timestamps are assigned by the store at creation.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	OccurredAt  time.Time `json:"occurred_at"`
	Source      string    `json:"source"`

	// RegionKey is the country name for country-scoped sources, used in the
	// dedup composite key. Empty for coordinate-scoped sources.
	RegionKey string `json:"region_key,omitempty"`

	// Classification state. An event with Processed=true carries a severity
	// in [1,10]; before classification the severity is a provisional
	// placeholder set by the adapter.
	Processed    bool         `json:"processed"`
	Severity     *int         `json:"severity,omitempty"`
	Band         SeverityBand `json:"severity_band,omitempty"`
	HighTriggers int          `json:"high_triggers,omitempty"`
	Analysis     *string      `json:"analysis,omitempty"`

	// Raw retains the provider-native payload for audit.
	Raw json.RawMessage `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProvisionalSeverity is assigned at creation, pending classification.
const ProvisionalSeverity = 3

// Candidate is a provider-sourced item not yet confirmed unique or persisted.
type Candidate struct {
	Source      string
	Type        string
	Title       string
	Description string
	RegionKey   string
	OccurredAt  time.Time

	// Position: either coordinates from the provider (HasCoords) or a
	// location name to resolve against the centroid table.
	HasCoords    bool
	Lat          float64
	Lon          float64
	LocationName string

	// IdentityKey seeds the deterministic jitter.
	IdentityKey string

	Raw json.RawMessage
}

// Evidence is the structured signal record backing a severity judgment.
// It is computed fresh per classification pass and not persisted; only the
// derived band and high-trigger count are.
type Evidence struct {
	Fatalities               int     `json:"fatalities"`
	Injuries                 int     `json:"injuries"`
	Displaced                int     `json:"displaced"`
	EconomicLossUSD          float64 `json:"economic_loss_usd"`
	EmergencyDeclared        bool    `json:"emergency_declared"`
	RegionalEmergencyOnly    bool    `json:"regional_emergency_only"`
	InternationalAid         bool    `json:"international_aid"`
	CrossBorderImpact        bool    `json:"cross_border_impact"`
	InfrastructureDisruption bool    `json:"infrastructure_disruption"`
	EnvironmentalHazard      bool    `json:"environmental_hazard"`
	RapidEscalation          bool    `json:"rapid_escalation"`
}

// AnalysisResult is the payload returned by the analysis provider: a raw
// numeric severity claim, structured evidence, and free narrative text.
type AnalysisResult struct {
	Severity  float64  `json:"severity"`
	Evidence  Evidence `json:"evidence"`
	Narrative string   `json:"narrative"`
}
