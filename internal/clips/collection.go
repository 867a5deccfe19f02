package clips

import "math"

// Collection is the ordered list of candidate clips for one run.
// It is not safe for concurrent use; the session controller serializes access.
type Collection struct {
	clips []Clip
}

func NewCollection() *Collection {
	return &Collection{}
}

// Populate replaces the whole collection, preserving the given order.
func (c *Collection) Populate(clips []Clip) {
	c.clips = append([]Clip(nil), clips...)
}

func (c *Collection) Clear() {
	c.clips = nil
}

func (c *Collection) Len() int {
	return len(c.clips)
}

// Clips returns a copy of the collection in order.
func (c *Collection) Clips() []Clip {
	return append([]Clip{}, c.clips...)
}

// Toggle flips the selection of the clip with the given id. An unknown id is a
// no-op and reports false.
func (c *Collection) Toggle(id string) (Clip, bool) {
	for i := range c.clips {
		if c.clips[i].ID == id {
			c.clips[i].Selected = !c.clips[i].Selected
			return c.clips[i], true
		}
	}
	return Clip{}, false
}

func (c *Collection) Selected() []Clip {
	selected := make([]Clip, 0, len(c.clips))
	for _, clip := range c.clips {
		if clip.Selected {
			selected = append(selected, clip)
		}
	}
	return selected
}

func (c *Collection) TotalSelectedSeconds() int {
	total := 0
	for _, clip := range c.clips {
		if clip.Selected {
			total += clip.Duration
		}
	}
	return total
}

// TotalSelectedDuration is TotalSelectedSeconds formatted as m:ss.
func (c *Collection) TotalSelectedDuration() string {
	return FormatTime(c.TotalSelectedSeconds())
}

// AverageConfidencePercent is the rounded mean confidence over all clips,
// selected or not. An empty collection yields 0.
func (c *Collection) AverageConfidencePercent() int {
	if len(c.clips) == 0 {
		return 0
	}
	sum := 0.0
	for _, clip := range c.clips {
		sum += clip.Confidence
	}
	return int(math.Round(sum / float64(len(c.clips)) * 100))
}

// Stats is the summary shown above the preview grid.
type Stats struct {
	ClipCount                int    `json:"clip_count"`
	SelectedCount            int    `json:"selected_count"`
	TotalSelectedSeconds     int    `json:"total_selected_seconds"`
	TotalSelectedDuration    string `json:"total_selected_duration"`
	AverageConfidencePercent int    `json:"average_confidence_percent"`
}

func (c *Collection) Stats() Stats {
	return Stats{
		ClipCount:                len(c.clips),
		SelectedCount:            len(c.Selected()),
		TotalSelectedSeconds:     c.TotalSelectedSeconds(),
		TotalSelectedDuration:    c.TotalSelectedDuration(),
		AverageConfidencePercent: c.AverageConfidencePercent(),
	}
}
