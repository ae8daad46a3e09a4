package model

import (
	"fmt"
	"time"
)

// Field names a single persisted project attribute. Stores key partial
// updates on these names.
type Field string

const (
	FieldTitle               Field = "title"
	FieldScript              Field = "script"
	FieldKeywords            Field = "keywords"
	FieldAudioURL            Field = "audioUrl"
	FieldGeneratedImages     Field = "generatedImages"
	FieldBrollImages         Field = "brollImages"
	FieldBrollVideoURL       Field = "brollVideoUrl"
	FieldVideoURL            Field = "videoUrl"
	FieldSlideshowVideoURL   Field = "slideshowVideoUrl"
	FieldSplitScreenVideoURL Field = "splitScreenVideoUrl"
	FieldMergedVideoURL      Field = "mergedVideoUrl"
	FieldTranscript          Field = "transcript"
	FieldTimedScenes         Field = "timedScenes"
	FieldAudioDuration       Field = "audioDuration"
	FieldStatus              Field = "status"
)

// ResourceType names a derived asset a caller may delete on its own.
type ResourceType string

const (
	ResourceBrollImages      ResourceType = "brollImages"
	ResourceBrollVideo       ResourceType = "brollVideo"
	ResourceMergedVideo      ResourceType = "mergedVideo"
	ResourceSplitScreenVideo ResourceType = "splitScreenVideo"
	ResourceSlideshowVideo   ResourceType = "slideshowVideo"
)

var resourceFields = map[ResourceType]Field{
	ResourceBrollImages:      FieldBrollImages,
	ResourceBrollVideo:       FieldBrollVideoURL,
	ResourceMergedVideo:      FieldMergedVideoURL,
	ResourceSplitScreenVideo: FieldSplitScreenVideoURL,
	ResourceSlideshowVideo:   FieldSlideshowVideoURL,
}

// Field returns the project field backing the resource.
func (r ResourceType) Field() (Field, bool) {
	f, ok := resourceFields[r]
	return f, ok
}

// clearable lists fields that may be nulled through ProjectPatch.Clear.
var clearable = map[Field]bool{
	FieldKeywords:            true,
	FieldAudioURL:            true,
	FieldGeneratedImages:     true,
	FieldBrollImages:         true,
	FieldBrollVideoURL:       true,
	FieldVideoURL:            true,
	FieldSlideshowVideoURL:   true,
	FieldSplitScreenVideoURL: true,
	FieldMergedVideoURL:      true,
	FieldTranscript:          true,
	FieldTimedScenes:         true,
	FieldAudioDuration:       true,
}

// ProjectPatch is a partial update. Nil pointers leave the field untouched;
// Clear nulls the listed fields. Reset permits a status write back to DRAFT.
type ProjectPatch struct {
	Title               *string
	Script              *string
	Keywords            *[]string
	AudioURL            *string
	GeneratedImages     *[]string
	BrollImages         *[]string
	BrollVideoURL       *string
	VideoURL            *string
	SlideshowVideoURL   *string
	SplitScreenVideoURL *string
	MergedVideoURL      *string
	Transcript          *[]Word
	TimedScenes         *[]TimedScene
	AudioDuration       *float64
	Status              *ProjectStatus
	Reset               bool
	Clear               []Field
}

// Values returns every touched field with its new value. Cleared fields map to nil.
func (p ProjectPatch) Values() map[Field]interface{} {
	v := make(map[Field]interface{})
	if p.Title != nil {
		v[FieldTitle] = *p.Title
	}
	if p.Script != nil {
		v[FieldScript] = *p.Script
	}
	if p.Keywords != nil {
		v[FieldKeywords] = *p.Keywords
	}
	if p.AudioURL != nil {
		v[FieldAudioURL] = *p.AudioURL
	}
	if p.GeneratedImages != nil {
		v[FieldGeneratedImages] = *p.GeneratedImages
	}
	if p.BrollImages != nil {
		v[FieldBrollImages] = *p.BrollImages
	}
	if p.BrollVideoURL != nil {
		v[FieldBrollVideoURL] = *p.BrollVideoURL
	}
	if p.VideoURL != nil {
		v[FieldVideoURL] = *p.VideoURL
	}
	if p.SlideshowVideoURL != nil {
		v[FieldSlideshowVideoURL] = *p.SlideshowVideoURL
	}
	if p.SplitScreenVideoURL != nil {
		v[FieldSplitScreenVideoURL] = *p.SplitScreenVideoURL
	}
	if p.MergedVideoURL != nil {
		v[FieldMergedVideoURL] = *p.MergedVideoURL
	}
	if p.Transcript != nil {
		v[FieldTranscript] = *p.Transcript
	}
	if p.TimedScenes != nil {
		v[FieldTimedScenes] = *p.TimedScenes
	}
	if p.AudioDuration != nil {
		v[FieldAudioDuration] = *p.AudioDuration
	}
	if p.Status != nil {
		v[FieldStatus] = *p.Status
	}
	for _, f := range p.Clear {
		v[f] = nil
	}
	return v
}

// Validate rejects clears of non-clearable fields and unknown statuses.
func (p ProjectPatch) Validate() error {
	for _, f := range p.Clear {
		if !clearable[f] {
			return fmt.Errorf("field %q cannot be cleared", f)
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", *p.Status)
	}
	return nil
}

// Apply merges the patch into project, enforcing the status transition table
// and bumping UpdatedAt.
func (p ProjectPatch) Apply(project *Project, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status != nil {
		if err := CheckTransition(project.Status, *p.Status, p.Reset); err != nil {
			return err
		}
		project.Status = *p.Status
	}

	if p.Title != nil {
		project.Title = *p.Title
	}
	if p.Script != nil {
		project.Script = *p.Script
	}
	if p.Keywords != nil {
		project.Keywords = append([]string(nil), (*p.Keywords)...)
	}
	if p.AudioURL != nil {
		project.AudioURL = *p.AudioURL
	}
	if p.GeneratedImages != nil {
		project.GeneratedImages = append([]string(nil), (*p.GeneratedImages)...)
	}
	if p.BrollImages != nil {
		project.BrollImages = append([]string(nil), (*p.BrollImages)...)
	}
	if p.BrollVideoURL != nil {
		project.BrollVideoURL = *p.BrollVideoURL
	}
	if p.VideoURL != nil {
		project.VideoURL = *p.VideoURL
	}
	if p.SlideshowVideoURL != nil {
		project.SlideshowVideoURL = *p.SlideshowVideoURL
	}
	if p.SplitScreenVideoURL != nil {
		project.SplitScreenVideoURL = *p.SplitScreenVideoURL
	}
	if p.MergedVideoURL != nil {
		project.MergedVideoURL = *p.MergedVideoURL
	}
	if p.Transcript != nil {
		project.Transcript = append([]Word(nil), (*p.Transcript)...)
	}
	if p.TimedScenes != nil {
		project.TimedScenes = append([]TimedScene(nil), (*p.TimedScenes)...)
	}
	if p.AudioDuration != nil {
		project.AudioDuration = *p.AudioDuration
	}

	for _, f := range p.Clear {
		clearField(project, f)
	}

	project.UpdatedAt = now
	return nil
}

func clearField(project *Project, f Field) {
	switch f {
	case FieldKeywords:
		project.Keywords = nil
	case FieldAudioURL:
		project.AudioURL = ""
	case FieldGeneratedImages:
		project.GeneratedImages = nil
	case FieldBrollImages:
		project.BrollImages = nil
	case FieldBrollVideoURL:
		project.BrollVideoURL = ""
	case FieldVideoURL:
		project.VideoURL = ""
	case FieldSlideshowVideoURL:
		project.SlideshowVideoURL = ""
	case FieldSplitScreenVideoURL:
		project.SplitScreenVideoURL = ""
	case FieldMergedVideoURL:
		project.MergedVideoURL = ""
	case FieldTranscript:
		project.Transcript = nil
	case FieldTimedScenes:
		project.TimedScenes = nil
	case FieldAudioDuration:
		project.AudioDuration = 0
	}
}

// StatusPatch is shorthand for a patch that only moves the status.
func StatusPatch(s ProjectStatus) ProjectPatch {
	return ProjectPatch{Status: &s}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
