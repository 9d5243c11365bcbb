package models

// RegionPatch is a field-level update. Nil fields are left untouched.
type RegionPatch struct {
	Start       *float64   `json:"start,omitempty"`
	End         *float64   `json:"end,omitempty"`
	Text        *[]Segment `json:"text,omitempty"`
	Translation *string    `json:"translation,omitempty"`
	IsNote      *bool      `json:"isNote,omitempty"`
	Issues      *[]Issue   `json:"issues,omitempty"`
}

// IsEmpty reports whether the patch sets no field
func (p RegionPatch) IsEmpty() bool {
	return p.Start == nil && p.End == nil && p.Text == nil &&
		p.Translation == nil && p.IsNote == nil && p.Issues == nil
}

// Merge returns p with every field set in next overriding p's value.
func (p RegionPatch) Merge(next RegionPatch) RegionPatch {
	if next.Start != nil {
		p.Start = next.Start
	}
	if next.End != nil {
		p.End = next.End
	}
	if next.Text != nil {
		p.Text = next.Text
	}
	if next.Translation != nil {
		p.Translation = next.Translation
	}
	if next.IsNote != nil {
		p.IsNote = next.IsNote
	}
	if next.Issues != nil {
		p.Issues = next.Issues
	}
	return p
}

// Fields lists the names of the fields set in the patch
func (p RegionPatch) Fields() []string {
	var fields []string
	if p.Start != nil {
		fields = append(fields, "start")
	}
	if p.End != nil {
		fields = append(fields, "end")
	}
	if p.Text != nil {
		fields = append(fields, "text")
	}
	if p.Translation != nil {
		fields = append(fields, "translation")
	}
	if p.IsNote != nil {
		fields = append(fields, "isNote")
	}
	if p.Issues != nil {
		fields = append(fields, "issues")
	}
	return fields
}

// ApplyTo writes the patch's fields onto a copy of region
func (p RegionPatch) ApplyTo(region Region) Region {
	out := region.Clone()
	if p.Start != nil {
		out.Start = *p.Start
	}
	if p.End != nil {
		out.End = *p.End
	}
	if p.Text != nil {
		out.Text = CloneSegments(*p.Text)
	}
	if p.Translation != nil {
		out.Translation = *p.Translation
	}
	if p.IsNote != nil {
		out.IsNote = *p.IsNote
	}
	if p.Issues != nil {
		out.Issues = CloneIssues(*p.Issues)
	}
	return out
}

// Float64 returns a pointer to v, for building patches
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// Segments returns a pointer to v
func Segments(v []Segment) *[]Segment { return &v }

// Issues returns a pointer to v
func Issues(v []Issue) *[]Issue { return &v }
