// Package domain models crisis events aggregated from public disaster feeds.
//
// # Data Sources
//
// Events originate from three heterogeneous public feeds:
//
//	NASA EONET    GET JSON events endpoint. Items carry point geometry
//	              (lon,lat order) and a category title such as "Wildfires".
//	ReliefWeb     POST JSON search endpoint. Items are scoped to a list of
//	              affected countries rather than coordinates; each item fans
//	              out into one candidate per country (capped at 5) and the
//	              country centroid table supplies the position.
//	GDACS         GET GeoJSON features endpoint. Features carry point
//	              geometry and a two-letter event type code (EQ, TC, FL, ...).
//
// # Deduplication
//
// A candidate duplicates an existing event when the case-insensitive,
// whitespace-trimmed title matches exactly (plus the region key for
// country-scoped sources) and the occurrence timestamps are less than the
// dedup window apart (default 24h). No fuzzy matching: provider titles that
// vary across revisions produce separate events, trading false negatives for
// determinism.
//
// # Coordinate Jitter
//
// Country-scoped events from the same country would stack on the centroid, so
// a deterministic offset in [-0.25, +0.25] degrees is derived from a 31-bit
// polynomial hash of the event's identity key. The longitude offset is scaled
// by 1/max(0.5, cos(lat)) to compensate for longitude compression away from
// the equator. The same identity always lands on the same spot, keeping
// repeated ingestion idempotent in placement.
//
// # Severity Classification
//
// Severity is an integer 1-10 inside a coarse band:
//
//	low    [1,3]   midpoint 2
//	medium [4,6]   midpoint 5
//	high   [7,10]  midpoint 8
//
// The analysis provider returns three signals that can disagree: a raw
// numeric claim, a structured evidence record, and free narrative text that
// may itself state a band or score. Reconcile resolves them: the narrative's
// explicit self-classification wins over the evidence-derived band, and the
// final score is clamped into the winning band's sub-range so a "low"
// narrative can never carry a 9. See [Reconcile].
package domain
