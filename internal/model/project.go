package model

import "time"

// Caller is the authenticated identity threaded explicitly into every stage call.
type Caller struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Scene pairs a narration segment with the prompt for its accompanying image.
type Scene struct {
	Content     string `json:"content" validate:"required"`
	ImagePrompt string `json:"imagePrompt" validate:"required"`
}

// Word is one transcript token with offsets in seconds.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimedScene is a scene aligned onto the speech transcript.
type TimedScene struct {
	Index       int     `json:"index"`
	Content     string  `json:"content"`
	ImagePrompt string  `json:"imagePrompt"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
}

// Duration returns the on-screen time of the scene.
func (s TimedScene) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Project is the persisted unit of work for one video being assembled.
type Project struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Title        string   `json:"title"`
	Script       string   `json:"script"`
	Scenes       []Scene  `json:"scenes,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	ImagePrompts []string `json:"imagePrompts,omitempty"`

	AudioURL            string       `json:"audioUrl,omitempty"`
	GeneratedImages     []string     `json:"generatedImages,omitempty"`
	BrollImages         []string     `json:"brollImages,omitempty"`
	BrollVideoURL       string       `json:"brollVideoUrl,omitempty"`
	VideoURL            string       `json:"videoUrl,omitempty"`
	SlideshowVideoURL   string       `json:"slideshowVideoUrl,omitempty"`
	SplitScreenVideoURL string       `json:"splitScreenVideoUrl,omitempty"`
	MergedVideoURL      string       `json:"mergedVideoUrl,omitempty"`
	Transcript          []Word       `json:"transcript,omitempty"`
	TimedScenes         []TimedScene `json:"timedScenes,omitempty"`
	AudioDuration       float64      `json:"audioDuration,omitempty"`

	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// OwnedBy reports whether the caller owns the project.
func (p *Project) OwnedBy(caller Caller) bool {
	return caller.UserID != "" && p.UserID == caller.UserID
}

// Prompts returns the image prompts in scene order, falling back to the scenes
// when no explicit prompt list was stored.
func (p *Project) Prompts() []string {
	if len(p.ImagePrompts) > 0 {
		return p.ImagePrompts
	}
	prompts := make([]string, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		if s.ImagePrompt != "" {
			prompts = append(prompts, s.ImagePrompt)
		}
	}
	return prompts
}

// BackgroundVideoURL is the B-roll layer used under a person inset.
func (p *Project) BackgroundVideoURL() string {
	if p.BrollVideoURL != "" {
		return p.BrollVideoURL
	}
	return p.SlideshowVideoURL
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Scenes = append([]Scene(nil), p.Scenes...)
	c.Keywords = append([]string(nil), p.Keywords...)
	c.ImagePrompts = append([]string(nil), p.ImagePrompts...)
	c.GeneratedImages = append([]string(nil), p.GeneratedImages...)
	c.BrollImages = append([]string(nil), p.BrollImages...)
	c.Transcript = append([]Word(nil), p.Transcript...)
	c.TimedScenes = append([]TimedScene(nil), p.TimedScenes...)
	return &c
}

// UserProfile holds the per-user assets the pipeline depends on.
type UserProfile struct {
	UserID    string    `json:"userId"`
	VoiceID   string    `json:"voiceId,omitempty"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
