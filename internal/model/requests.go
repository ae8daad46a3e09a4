package model

// ScriptMode selects how the narration is generated.
type ScriptMode string

const (
	ScriptModeFlat     ScriptMode = "flat"
	ScriptModeScenes   ScriptMode = "scenes"
	ScriptModeKeywords ScriptMode = "keywords"
)

// CompositionKind names one composed output of a project.
type CompositionKind string

const (
	KindLipSync     CompositionKind = "lipsync"
	KindSlideshow   CompositionKind = "slideshow"
	KindSplitScreen CompositionKind = "splitscreen"
	KindMerge       CompositionKind = "merge"
	KindBrollVideo  CompositionKind = "brollvideo"
)

// PersonPosition anchors the person inset over the background.
type PersonPosition string

const (
	PositionBottom      PersonPosition = "bottom"
	PositionBottomLeft  PersonPosition = "bottom_left"
	PositionBottomRight PersonPosition = "bottom_right"
)

const DefaultPersonSize = 0.35

// Script

type ScriptGenerateRequest struct {
	Prompt string     `json:"prompt" validate:"required"`
	Mode   ScriptMode `json:"mode,omitempty" validate:"omitempty,oneof=flat scenes keywords"`
}

type ScriptGenerateResponse struct {
	Text     string    `json:"text"`
	Scenes   []Scene   `json:"scenes,omitempty"`
	Keywords *[]string `json:"keywords,omitempty"`
}

// Audio

type SpeechRequest struct {
	Text string `json:"text" validate:"required"`
}

type SpeechResponse struct {
	AudioURL string `json:"audioUrl"`
}

type VoiceTrainRequest struct {
	SampleAudioRef string `json:"sampleAudioRef" validate:"required"`
	Name           string `json:"name,omitempty" validate:"omitempty,max=100"`
}

type VoiceTrainResponse struct {
	VoiceID string `json:"voiceId"`
}

type TranscribeResponse struct {
	Transcript    []Word       `json:"transcript"`
	TimedScenes   []TimedScene `json:"timedScenes,omitempty"`
	AudioDuration float64      `json:"audioDuration"`
}

// Images

type ImageGenerateRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
}

type ImageGenerateResponse struct {
	ImageURLs   []string `json:"imageUrls"`
	ImageCount  int      `json:"imageCount"`
	FailedCount int      `json:"failedCount"`
}

// Video

type ComposeOptions struct {
	PersonSize     float64        `json:"personSize,omitempty" validate:"omitempty,gt=0,lte=1"`
	PersonPosition PersonPosition `json:"personPosition,omitempty" validate:"omitempty,oneof=bottom bottom_left bottom_right"`
}

// WithDefaults fills unset options.
func (o *ComposeOptions) WithDefaults() ComposeOptions {
	out := ComposeOptions{PersonSize: DefaultPersonSize, PersonPosition: PositionBottom}
	if o == nil {
		return out
	}
	if o.PersonSize > 0 {
		out.PersonSize = o.PersonSize
	}
	if o.PersonPosition != "" {
		out.PersonPosition = o.PersonPosition
	}
	return out
}

type ComposeRequest struct {
	ProjectID string          `json:"projectId" validate:"required"`
	Kind      CompositionKind `json:"kind" validate:"required,oneof=lipsync slideshow splitscreen merge brollvideo"`
	Options   *ComposeOptions `json:"options,omitempty"`
}

type ComposeResponse struct {
	Kind      CompositionKind `json:"kind"`
	OutputURL string          `json:"outputUrl"`
}

type DeleteResourceRequest struct {
	ResourceType ResourceType `json:"resourceType" validate:"required,oneof=brollImages brollVideo mergedVideo splitScreenVideo slideshowVideo"`
}

// Projects

type ProjectCreateRequest struct {
	Title    string   `json:"title" validate:"required"`
	Script   string   `json:"script" validate:"required"`
	Scenes   []Scene  `json:"scenes,omitempty" validate:"omitempty,dive"`
	Keywords []string `json:"keywords,omitempty" validate:"omitempty,dive,required"`
}

type ProjectUpdateRequest struct {
	Title    *string   `json:"title,omitempty" validate:"omitempty,min=1"`
	Script   *string   `json:"script,omitempty" validate:"omitempty,min=1"`
	Keywords *[]string `json:"keywords,omitempty"`
}

type ProjectResponse struct {
	Project *Project `json:"project"`
}

type ProjectListResponse struct {
	Projects []*Project `json:"projects"`
}

// Pipeline

type PipelineAction string

const (
	ActionFullVideo  PipelineAction = "full_video"
	ActionImageVideo PipelineAction = "image_video"
)

type ScriptProjectRequest struct {
	Title  string     `json:"title,omitempty" validate:"omitempty,max=200"`
	Prompt string     `json:"prompt" validate:"required"`
	Mode   ScriptMode `json:"mode,omitempty" validate:"omitempty,oneof=flat scenes keywords"`
}

type FullVideoRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
}

type ImageVideoRequest struct {
	ProjectID string          `json:"projectId" validate:"required"`
	Kind      CompositionKind `json:"kind,omitempty" validate:"omitempty,oneof=slideshow splitscreen merge"`
	Options   *ComposeOptions `json:"options,omitempty"`
}

type PipelineResponse struct {
	Project   *Project `json:"project"`
	AudioURL  string   `json:"audioUrl,omitempty"`
	ImageURLs []string `json:"imageUrls,omitempty"`
	OutputURL string   `json:"outputUrl"`
}

type JobCreateRequest struct {
	ProjectID string          `json:"projectId" validate:"required"`
	Action    PipelineAction  `json:"action" validate:"required,oneof=full_video image_video"`
	Kind      CompositionKind `json:"kind,omitempty" validate:"omitempty,oneof=slideshow splitscreen merge"`
	Options   *ComposeOptions `json:"options,omitempty"`
}

type JobCreateResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
