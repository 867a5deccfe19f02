package export

import (
	"fmt"
	"math"
	"strings"
)

// EDLEvent is one cut of the source video, in whole seconds of source time.
type EDLEvent struct {
	ClipID     string
	Name       string
	Source     string
	Confidence float64
	In         int
	Out        int
}

func (e EDLEvent) Seconds() int {
	return e.Out - e.In
}

// isDropFrame reports whether rate is one of the NTSC drop-frame rates.
func isDropFrame(rate float64) bool {
	return math.Abs(rate-29.97) < 0.01 || math.Abs(rate-59.94) < 0.01
}

// RenderEDL lays events back to back on the record timeline and renders a
// CMX3600 edit decision list.
func RenderEDL(title string, frameRate float64, events []EDLEvent) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if isDropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	recordMs := 0
	for i, ev := range events {
		durationMs := ev.Seconds() * 1000
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n", i+1, "AX", "V",
			Timecode(ev.In*1000, frameRate), Timecode(ev.Out*1000, frameRate),
			Timecode(recordMs, frameRate), Timecode(recordMs+durationMs, frameRate))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", ev.Name)
		fmt.Fprintf(&b, "* SOURCE FILE:  %s\n", ev.Source)
		fmt.Fprintf(&b, "* CLIP ID:  %s  CONFIDENCE:  %d%%\n", ev.ClipID, int(math.Round(ev.Confidence*100)))
		recordMs += durationMs
	}
	return b.String()
}

// Timecode renders a millisecond offset as HH:MM:SS:FF at frameRate. NTSC
// rates use drop-frame numbering with ';' before the frame field.
func Timecode(ms int, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	fps := int(math.Round(frameRate))
	totalFrames := int(math.Round(float64(ms) * frameRate / 1000.0))

	sep := ":"
	if isDropFrame(frameRate) {
		sep = ";"
		totalFrames = dropFrameNumber(totalFrames, frameRate, fps)
	}

	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", hours, minutes, seconds, sep, frames)
}

// dropFrameNumber maps an actual frame count to its drop-frame label number.
// Frame labels 0 and 1 (0-3 at 59.94) are skipped every minute except each
// tenth minute.
func dropFrameNumber(frame int, frameRate float64, fps int) int {
	dropped := int(math.Round(frameRate * 0.066666))
	perTenMinutes := int(math.Round(frameRate * 600))
	perMinute := fps*60 - dropped

	tens := frame / perTenMinutes
	rem := frame % perTenMinutes
	frame += dropped * 9 * tens
	if rem > dropped {
		frame += dropped * ((rem - dropped) / perMinute)
	}
	return frame
}
