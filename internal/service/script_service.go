package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
)

// ScriptService turns a topic into narration, optionally split into scenes
// or followed by a keyword pass.
type ScriptService struct {
	text        client.TextGenerator
	callTimeout time.Duration
}

func NewScriptService(text client.TextGenerator, callTimeout time.Duration) *ScriptService {
	return &ScriptService{
		text:        text,
		callTimeout: callTimeout,
	}
}

// ParseResult is the outcome of decoding a scene response: either Scenes, or
// the raw Malformed text with a Reason.
type ParseResult struct {
	Scenes    []model.Scene
	Malformed string
	Reason    string
}

// OK reports whether the response decoded into usable scenes.
func (r ParseResult) OK() bool {
	return r.Reason == ""
}

// GenerateScript produces narration for topic in the requested mode.
func (s *ScriptService) GenerateScript(ctx context.Context, caller model.Caller, topic string, mode model.ScriptMode) (*model.ScriptGenerateResponse, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperr.Validation("prompt is required", nil)
	}
	if mode == "" {
		mode = model.ScriptModeScenes
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{"stage": "script", "mode": mode, "user_id": caller.UserID})

	if s.text == nil || !s.text.IsConfigured() {
		log.Debug("text client not configured, using mock script")
		return s.generateMock(topic, mode), nil
	}

	switch mode {
	case model.ScriptModeFlat:
		text, err := s.complete(ctx, scriptSystemPrompt, buildFlatPrompt(topic))
		if err != nil {
			return nil, err
		}
		return &model.ScriptGenerateResponse{Text: text}, nil

	case model.ScriptModeScenes:
		raw, err := s.complete(ctx, scriptSystemPrompt, buildScenePrompt(topic))
		if err != nil {
			return nil, err
		}
		result := ParseScenes(raw)
		if !result.OK() {
			log.WithField("reason", result.Reason).Warn("malformed scene response")
			return nil, apperr.UpstreamFormat("failed to parse AI response: "+result.Reason, result.Malformed)
		}
		return &model.ScriptGenerateResponse{
			Text:   JoinScenes(result.Scenes),
			Scenes: result.Scenes,
		}, nil

	case model.ScriptModeKeywords:
		text, err := s.complete(ctx, scriptSystemPrompt, buildFlatPrompt(topic))
		if err != nil {
			return nil, err
		}
		raw, err := s.complete(ctx, keywordSystemPrompt, buildKeywordPrompt(text))
		if err != nil {
			return nil, err
		}
		keywords := ParseKeywords(raw)
		return &model.ScriptGenerateResponse{Text: text, Keywords: &keywords}, nil
	}

	return nil, apperr.Validation(fmt.Sprintf("unknown mode %q", mode), nil)
}

func (s *ScriptService) complete(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := withCallTimeout(ctx, s.callTimeout)
	defer cancel()

	text, err := s.text.ChatCompletion(callCtx, system, user)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("stage", "script").Error("text generation failed")
		return "", apperr.Upstream("text", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.UpstreamFormat("AI generated empty content", text)
	}
	return text, nil
}

// ParseScenes locates the first balanced JSON object in raw and decodes its
// scenes array. Every scene must carry content and an imagePrompt.
func ParseScenes(raw string) ParseResult {
	block, ok := extractJSONObject(raw)
	if !ok {
		return ParseResult{Malformed: raw, Reason: "no JSON object in response"}
	}

	var payload struct {
		Scenes []model.Scene `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return ParseResult{Malformed: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(payload.Scenes) == 0 {
		return ParseResult{Malformed: raw, Reason: "missing scenes array"}
	}

	scenes := make([]model.Scene, 0, len(payload.Scenes))
	for i, sc := range payload.Scenes {
		content := strings.TrimSpace(sc.Content)
		prompt := strings.TrimSpace(sc.ImagePrompt)
		if content == "" || prompt == "" {
			return ParseResult{Malformed: raw, Reason: fmt.Sprintf("scene %d is missing content or imagePrompt", i)}
		}
		scenes = append(scenes, model.Scene{Content: content, ImagePrompt: prompt})
	}
	return ParseResult{Scenes: scenes}
}

// extractJSONObject returns the first balanced {...} block of s. Braces inside
// JSON string literals do not count towards depth.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseKeywords splits a comma-separated list. An empty list is valid.
func ParseKeywords(raw string) []string {
	keywords := []string{}
	for _, part := range strings.Split(raw, ",") {
		k := strings.Trim(strings.TrimSpace(part), `"'.`)
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// JoinScenes builds the narration from scene contents separated by blank lines.
func JoinScenes(scenes []model.Scene) string {
	parts := make([]string, len(scenes))
	for i, sc := range scenes {
		parts[i] = sc.Content
	}
	return strings.Join(parts, "\n\n")
}

const scriptSystemPrompt = `You are a scriptwriter for short vertical videos.
You write in first person with a conversational yet professional tone.
When JSON is requested, output only valid JSON in the exact format requested.`

const keywordSystemPrompt = `You pick visual keywords for B-roll footage.
Reply with a single comma-separated list and nothing else.`

func buildFlatPrompt(topic string) string {
	return fmt.Sprintf(`Write a short, engaging video narration about %q.
It should take 30-60 seconds to speak, in first person, with a clear beginning, middle and end.
Return only the narration text.`, topic)
}

func buildScenePrompt(topic string) string {
	return fmt.Sprintf(`Create a short, engaging video script about %q divided into 4-6 distinct scenes.

For each scene, provide:
1. content: a short paragraph of spoken text in first person. The complete script should be 30-60 seconds when spoken.
2. imagePrompt: a detailed image generation prompt for a beautiful, relevant visual to accompany this scene.

Format your response as valid JSON with this structure:
{"scenes": [{"content": "...", "imagePrompt": "..."}]}

Keep the script cohesive, with a clear beginning, middle and end.`, topic)
}

func buildKeywordPrompt(narration string) string {
	return fmt.Sprintf(`List 5-8 short visual keywords for B-roll footage that matches this narration.
Respond with a comma-separated list only.

Narration:
%s`, narration)
}

func (s *ScriptService) generateMock(topic string, mode model.ScriptMode) *model.ScriptGenerateResponse {
	scenes := []model.Scene{
		{Content: fmt.Sprintf("Let me tell you about %s.", topic), ImagePrompt: fmt.Sprintf("Cinematic wide shot illustrating %s, golden hour", topic)},
		{Content: "Most people never notice how much it shapes their day.", ImagePrompt: "Busy city street seen from above, soft morning light"},
		{Content: "Once you see it, you can't unsee it.", ImagePrompt: "Close-up of a person's eyes reflecting a bright screen"},
		{Content: "So next time, take a closer look.", ImagePrompt: "Person walking towards a sunrise on an open road"},
	}

	resp := &model.ScriptGenerateResponse{Text: JoinScenes(scenes)}
	switch mode {
	case model.ScriptModeScenes:
		resp.Scenes = scenes
	case model.ScriptModeKeywords:
		keywords := []string{topic, "city street", "sunrise", "close-up"}
		resp.Keywords = &keywords
	}
	return resp
}
