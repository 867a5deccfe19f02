package clips

import "fmt"

const thumbnailBase = "https://images.pexels.com/photos/%s/pexels-photo-%s.jpeg?auto=compress&cs=tinysrgb&w=400"

// Fixture returns the canned analysis result: five clips, the first three
// selected. A fresh slice is returned on every call.
func Fixture() []Clip {
	return []Clip{
		{
			ID:           "1",
			Title:        `Opening Hook - "The Secret Nobody Tells You"`,
			Duration:     28,
			ThumbnailURL: thumbnail("3184291"),
			StartTime:    45,
			EndTime:      73,
			Confidence:   0.95,
			Selected:     true,
		},
		{
			ID:           "2",
			Title:        `Key Insight - "This Changes Everything"`,
			Duration:     32,
			ThumbnailURL: thumbnail("3184338"),
			StartTime:    420,
			EndTime:      452,
			Confidence:   0.92,
			Selected:     true,
		},
		{
			ID:           "3",
			Title:        "Emotional Moment - Audience Reaction",
			Duration:     25,
			ThumbnailURL: thumbnail("3184465"),
			StartTime:    1240,
			EndTime:      1265,
			Confidence:   0.88,
			Selected:     true,
		},
		{
			ID:           "4",
			Title:        `Actionable Tip - "Do This Today"`,
			Duration:     30,
			ThumbnailURL: thumbnail("3184639"),
			StartTime:    1800,
			EndTime:      1830,
			Confidence:   0.85,
			Selected:     false,
		},
		{
			ID:           "5",
			Title:        "Surprising Statistic Reveal",
			Duration:     22,
			ThumbnailURL: thumbnail("3184418"),
			StartTime:    2100,
			EndTime:      2122,
			Confidence:   0.82,
			Selected:     false,
		},
	}
}

func thumbnail(photoID string) string {
	return fmt.Sprintf(thumbnailBase, photoID, photoID)
}
