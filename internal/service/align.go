package service

import (
	"strings"

	"github.com/videogen/api/internal/model"
)

// AlignScenes maps scenes onto transcript words in order. Scene i takes the
// next len(words(scene)) transcript words. Scenes left over once the
// transcript runs out share the remaining time up to duration in proportion
// to their word counts.
func AlignScenes(scenes []model.Scene, words []model.Word, duration float64) []model.TimedScene {
	timed := make([]model.TimedScene, len(scenes))
	counts := make([]int, len(scenes))
	for i, sc := range scenes {
		counts[i] = len(strings.Fields(sc.Content))
		timed[i] = model.TimedScene{Index: i, Content: sc.Content, ImagePrompt: sc.ImagePrompt}
	}

	cursor := 0
	prevEnd := 0.0
	tail := len(scenes)
	for i, n := range counts {
		if cursor+n > len(words) {
			tail = i
			break
		}
		if n == 0 {
			timed[i].Start, timed[i].End = prevEnd, prevEnd
			continue
		}
		timed[i].Start = words[cursor].Start
		timed[i].End = words[cursor+n-1].End
		prevEnd = timed[i].End
		cursor += n
	}
	if tail == len(scenes) {
		return timed
	}

	tailStart := prevEnd
	if cursor < len(words) {
		tailStart = words[cursor].Start
	}
	tailEnd := duration
	if len(words) > 0 && words[len(words)-1].End > tailEnd {
		tailEnd = words[len(words)-1].End
	}
	if tailEnd < tailStart {
		tailEnd = tailStart
	}

	weight := 0
	for _, n := range counts[tail:] {
		weight += maxInt(n, 1)
	}
	span := tailEnd - tailStart
	at := tailStart
	for i := tail; i < len(scenes); i++ {
		share := span * float64(maxInt(counts[i], 1)) / float64(weight)
		timed[i].Start = at
		timed[i].End = at + share
		at = timed[i].End
	}
	timed[len(scenes)-1].End = tailEnd

	return timed
}

// slideDurations returns one on-screen duration per image. Timed scenes are
// used when they line up with the images; otherwise the audio is split evenly.
func slideDurations(project *model.Project, images int) []float64 {
	const fallback = 5.0

	durations := make([]float64, images)
	if len(project.TimedScenes) == images {
		for i, ts := range project.TimedScenes {
			durations[i] = ts.Duration()
			if durations[i] <= 0 {
				durations[i] = fallback
			}
		}
		return durations
	}

	each := fallback
	if project.AudioDuration > 0 && images > 0 {
		each = project.AudioDuration / float64(images)
	}
	for i := range durations {
		durations[i] = each
	}
	return durations
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
