package models

import (
	"time"

	"gorm.io/datatypes"
)

// RegionRecord is the persisted form of a Region
type RegionRecord struct {
	ID              string                        `gorm:"primaryKey"`
	TranscriptID    string                        `gorm:"not null;index"`
	Start           float64                       `gorm:"column:start_time;not null"`
	End             float64                       `gorm:"column:end_time;not null"`
	Text            datatypes.JSONType[[]Segment] `gorm:"type:json"`
	Translation     string                        `gorm:"type:text"`
	IsNote          bool                          `gorm:"default:false"`
	Issues          datatypes.JSONType[[]Issue]   `gorm:"type:json"`
	UserLastUpdated string                        `gorm:"index"`
	DateLastUpdated int64                         `gorm:"not null;index"`
	Deleted         bool                          `gorm:"default:false;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name for the RegionRecord model
func (RegionRecord) TableName() string {
	return "regions"
}

// NewRegionRecord converts a region into its persisted form
func NewRegionRecord(r Region) *RegionRecord {
	return &RegionRecord{
		ID:              r.ID,
		TranscriptID:    r.TranscriptID,
		Start:           r.Start,
		End:             r.End,
		Text:            datatypes.NewJSONType(CloneSegments(r.Text)),
		Translation:     r.Translation,
		IsNote:          r.IsNote,
		Issues:          datatypes.NewJSONType(CloneIssues(r.Issues)),
		UserLastUpdated: r.UserLastUpdated,
		DateLastUpdated: r.DateLastUpdated,
	}
}

// Region converts the record back to the domain type. Index and DisplayIndex
// are left zero: they are computed by clients.
func (rec *RegionRecord) Region() Region {
	return Region{
		ID:              rec.ID,
		TranscriptID:    rec.TranscriptID,
		Start:           rec.Start,
		End:             rec.End,
		Text:            rec.Text.Data(),
		Translation:     rec.Translation,
		IsNote:          rec.IsNote,
		Issues:          rec.Issues.Data(),
		UserLastUpdated: rec.UserLastUpdated,
		DateLastUpdated: rec.DateLastUpdated,
	}
}

// Remote converts the record to the transport form, carrying tombstones
func (rec *RegionRecord) Remote() RemoteRegion {
	return RemoteRegion{Region: rec.Region(), Deleted: rec.Deleted}
}
