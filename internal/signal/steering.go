package signal

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// NumChannels is the number of antenna channels at every site.
const NumChannels = 4

// NumBearings is the number of whole-degree bearings in a calibration.
const NumBearings = 360

// Vector is a per-channel complex sample.
type Vector [NumChannels]complex128

// Matrix is a per-channel complex covariance.
type Matrix [NumChannels][NumChannels]complex128

// SteeringRow is one calibration row as stored: bearing in whole degrees.
type SteeringRow struct {
	ID      int64
	Bearing float64
	Vector  Vector
}

// SiteSteering maps each whole-degree bearing to the array response of a
// single site.
type SiteSteering struct {
	SiteID  int
	ids     [NumBearings]int64
	vectors [NumBearings]Vector
}

// At returns the steering vector for bearing degree b in [0, 360).
func (s *SiteSteering) At(b int) Vector { return s.vectors[b] }

// RowID returns the storage ID of the row for bearing b, for provenance.
func (s *SiteSteering) RowID(b int) int64 { return s.ids[b] }

// Channel returns the 360 responses of channel ch, indexed by bearing.
func (s *SiteSteering) Channel(ch int) []complex128 {
	out := make([]complex128, NumBearings)
	for b := range s.vectors {
		out[b] = s.vectors[b][ch]
	}
	return out
}

// SteeringTable holds the calibration of every site for one calibration ID.
type SteeringTable struct {
	CalibrationID int
	sites         map[int]*SiteSteering
}

// NewSteeringTable returns an empty table for calibration calID.
func NewSteeringTable(calID int) *SteeringTable {
	return &SteeringTable{CalibrationID: calID, sites: make(map[int]*SiteSteering)}
}

// AddSite installs the calibration rows of a site. Exactly one finite row
// per whole-degree bearing 0..359 is required.
func (t *SteeringTable) AddSite(siteID int, rows []SteeringRow) error {
	if len(rows) != NumBearings {
		return &ContractError{SiteID: siteID, Field: "steering_vectors",
			Msg: fmt.Sprintf("expected %d rows, got %d", NumBearings, len(rows))}
	}
	site := &SiteSteering{SiteID: siteID}
	var seen [NumBearings]bool
	for _, row := range rows {
		b := row.Bearing
		if b != math.Trunc(b) || b < 0 || b >= NumBearings {
			return &ContractError{SiteID: siteID, Field: "bearing",
				Msg: fmt.Sprintf("bearing %v is not a whole degree in [0, 360)", b)}
		}
		i := int(b)
		if seen[i] {
			return &ContractError{SiteID: siteID, Field: "bearing",
				Msg: fmt.Sprintf("duplicate bearing %d", i)}
		}
		for ch, v := range row.Vector {
			if cmplx.IsNaN(v) || cmplx.IsInf(v) {
				return &ContractError{SiteID: siteID, Field: fmt.Sprintf("sv%d", ch+1),
					Msg: fmt.Sprintf("non-finite component at bearing %d", i)}
			}
		}
		seen[i] = true
		site.ids[i] = row.ID
		site.vectors[i] = row.Vector
	}
	t.sites[siteID] = site
	return nil
}

// Site returns the calibration of a site.
func (t *SteeringTable) Site(siteID int) (*SiteSteering, bool) {
	s, ok := t.sites[siteID]
	return s, ok
}

// SiteIDs returns the calibrated site IDs in ascending order.
func (t *SteeringTable) SiteIDs() []int {
	ids := make([]int, 0, len(t.sites))
	for id := range t.sites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
