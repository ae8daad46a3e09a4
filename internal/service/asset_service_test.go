package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/model"
)

func TestSynthesizeSpeech_StoresAudioAndKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, nil)
	if err := f.store.SetVoiceID(ctx, owner.UserID, "voice-1"); err != nil {
		t.Fatalf("set voice: %v", err)
	}

	audioURL, err := f.assets.SynthesizeSpeech(ctx, owner, p.ID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.HasPrefix(audioURL, "https://cdn.test/audio/"+p.ID+"/") {
		t.Errorf("unexpected audio url %q", audioURL)
	}

	got := f.get(t, p.ID)
	if got.AudioURL != audioURL {
		t.Errorf("expected audioUrl %q, got %q", audioURL, got.AudioURL)
	}
	if got.Status != model.StatusDraft {
		t.Errorf("speech must not change status, got %s", got.Status)
	}
	key := strings.TrimPrefix(audioURL, "https://cdn.test/")
	if data, ok := f.storage.Object(key); !ok || !bytes.Equal(data, []byte("mp3-bytes")) {
		t.Error("audio bytes were not uploaded")
	}
}

func TestSynthesizeSpeech_NoVoice(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, nil)

	_, err := f.assets.SynthesizeSpeech(context.Background(), owner, p.ID)
	if !apperr.Is(err, apperr.KindNotFound) || !strings.Contains(err.Error(), "voice ID not found") {
		t.Fatalf("expected voice not found, got %v", err)
	}
	if f.speech.calls != 0 {
		t.Error("vendor must not be called without a voice")
	}
}

func TestSynthesizeSpeech_VendorFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, nil)
	_ = f.store.SetVoiceID(ctx, owner.UserID, "voice-1")
	f.speech.err = errors.New("quota exceeded")

	_, err := f.assets.SynthesizeSpeech(ctx, owner, p.ID)
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if got := f.get(t, p.ID); got.AudioURL != "" {
		t.Errorf("audio url must stay empty, got %q", got.AudioURL)
	}
}

func TestAssetStages_RejectNonOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, func(p *model.Project) { p.AudioURL = "https://cdn.test/a.mp3" })
	_ = f.store.SetVoiceID(ctx, stranger.UserID, "voice-2")
	before := f.get(t, p.ID)

	calls := []struct {
		name string
		run  func() error
	}{
		{"speech", func() error { _, err := f.assets.SynthesizeSpeech(ctx, stranger, p.ID); return err }},
		{"images", func() error { _, err := f.assets.GenerateImages(ctx, stranger, p.ID); return err }},
		{"broll", func() error { _, err := f.assets.GenerateBrollImages(ctx, stranger, p.ID); return err }},
		{"transcribe", func() error { _, err := f.assets.Transcribe(ctx, stranger, p.ID); return err }},
	}
	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			if err := c.run(); !apperr.Is(err, apperr.KindForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
		})
	}

	after := f.get(t, p.ID)
	if !reflect.DeepEqual(before, after) {
		t.Error("project mutated by a non-owner")
	}
	if f.speech.calls != 0 || f.images.calls != 0 {
		t.Error("vendors called for a non-owner")
	}
}

func TestAssetStages_MissingProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.assets.GenerateImages(context.Background(), owner, "nope")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = f.assets.GenerateImages(context.Background(), owner, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
}

func TestGenerateImages_PartialSuccess(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, nil)
	f.images.fail["globe"] = true

	resp, err := f.assets.GenerateImages(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.ImageCount != 1 || resp.FailedCount != 1 {
		t.Errorf("expected 1 generated and 1 failed, got %+v", resp)
	}
	got := f.get(t, p.ID)
	if !reflect.DeepEqual(got.GeneratedImages, []string{"https://img.test/sunrise.png"}) {
		t.Errorf("unexpected generated images %v", got.GeneratedImages)
	}
}

func TestGenerateImages_AllFailedLeavesProject(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) { p.GeneratedImages = []string{"https://old.test/1.png"} })
	f.images.fail["sunrise"] = true
	f.images.fail["globe"] = true

	_, err := f.assets.GenerateImages(context.Background(), owner, p.ID)
	if !apperr.Is(err, apperr.KindAllGenerationsFailed) {
		t.Fatalf("expected all generations failed, got %v", err)
	}
	if got := f.get(t, p.ID); !reflect.DeepEqual(got.GeneratedImages, []string{"https://old.test/1.png"}) {
		t.Errorf("existing images must be kept, got %v", got.GeneratedImages)
	}
}

func TestGenerateImages_KeywordOnlyProject(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) {
		p.Scenes = nil
		p.ImagePrompts = nil
		p.Keywords = []string{"city", "sunrise"}
	})

	resp, err := f.assets.GenerateImages(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []string{
		"https://img.test/" + brollPrompt("city") + ".png",
		"https://img.test/" + brollPrompt("sunrise") + ".png",
	}
	if !reflect.DeepEqual(resp.ImageURLs, want) {
		t.Errorf("expected keyword images %v, got %v", want, resp.ImageURLs)
	}
	got := f.get(t, p.ID)
	if !reflect.DeepEqual(got.GeneratedImages, want) || len(got.BrollImages) != 0 {
		t.Errorf("keyword images belong in generatedImages only, got %+v", got)
	}
}

func TestGenerateImages_NoPrompts(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) {
		p.Scenes = nil
		p.ImagePrompts = nil
	})

	_, err := f.assets.GenerateImages(context.Background(), owner, p.ID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateBrollImages(t *testing.T) {
	f := newFixture(t)
	p := f.createProject(t, func(p *model.Project) { p.Keywords = []string{"ocean", "forest"} })

	resp, err := f.assets.GenerateBrollImages(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("generate broll: %v", err)
	}
	if resp.ImageCount != 2 {
		t.Errorf("expected 2 images, got %d", resp.ImageCount)
	}
	got := f.get(t, p.ID)
	if len(got.BrollImages) != 2 || len(got.GeneratedImages) != 0 {
		t.Errorf("broll must only write brollImages, got %+v", got)
	}
}

func TestRegisterVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/samples/me.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("RIFF-sample"))
	}))
	defer srv.Close()

	f := newFixture(t)
	f.storage.BaseURL = srv.URL
	ctx := context.Background()

	voiceID, err := f.assets.RegisterVoice(ctx, owner, srv.URL+"/samples/me.wav", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if voiceID != "voice-new" {
		t.Errorf("unexpected voice id %q", voiceID)
	}
	profile, err := f.assets.GetProfile(ctx, owner)
	if err != nil || profile.VoiceID != "voice-new" {
		t.Errorf("voice not recorded on profile: %+v, %v", profile, err)
	}

	_, err = f.assets.RegisterVoice(ctx, owner, srv.URL+"/samples/missing.mp3", "")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for missing sample, got %v", err)
	}
}

func TestRegisterVoice_StorageKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices/me.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ID3-sample"))
	}))
	defer srv.Close()

	f := newFixture(t)
	f.storage.BaseURL = srv.URL

	if _, err := f.assets.RegisterVoice(context.Background(), owner, "voices/me.mp3", "Me"); err != nil {
		t.Fatalf("register from key: %v", err)
	}
}

func TestRegisterVoice_RejectsForeignHosts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("secret"))
	}))
	defer srv.Close()

	f := newFixture(t)
	refs := []string{
		srv.URL + "/samples/me.wav",
		"http://169.254.169.254/latest/meta-data/voice.mp3",
		"https://cdn.test.attacker.example/voice.mp3",
		"ftp://cdn.test/voice.mp3",
	}
	for _, ref := range refs {
		_, err := f.assets.RegisterVoice(context.Background(), owner, ref, "")
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%q: expected validation error, got %v", ref, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("foreign host must not be fetched, got %d requests", n)
	}
	if profile, _ := f.assets.GetProfile(context.Background(), owner); profile.VoiceID != "" {
		t.Errorf("no voice may be registered from a foreign host, got %q", profile.VoiceID)
	}
}

func TestRegisterVoice_RejectsFormat(t *testing.T) {
	f := newFixture(t)

	for _, ref := range []string{"", "voice/sample.ogg", "https://cdn.test/clip.flac"} {
		_, err := f.assets.RegisterVoice(context.Background(), owner, ref, "")
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%q: expected validation error, got %v", ref, err)
		}
	}
}

func TestSetProfileVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.assets.SetProfileVideo(ctx, owner, "me.gif", strings.NewReader("x")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	videoURL, err := f.assets.SetProfileVideo(ctx, owner, "me.MP4", strings.NewReader("video"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	profile, _ := f.assets.GetProfile(ctx, owner)
	if profile.VideoURL != videoURL {
		t.Errorf("expected profile video %q, got %q", videoURL, profile.VideoURL)
	}
}

func TestGetProfile_EmptyWhenUnset(t *testing.T) {
	f := newFixture(t)

	profile, err := f.assets.GetProfile(context.Background(), stranger)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.UserID != stranger.UserID || profile.VoiceID != "" {
		t.Errorf("unexpected profile %+v", profile)
	}
}

func TestTranscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProject(t, nil)

	if _, err := f.assets.Transcribe(ctx, owner, p.ID); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition without audio, got %v", err)
	}

	p = f.createProject(t, func(p *model.Project) { p.AudioURL = "https://cdn.test/a.mp3" })
	f.transcriber.words = []model.Word{{Text: "Hello", Start: 0, End: 0.5}, {Text: "world", Start: 0.6, End: 1.2}}
	f.transcriber.duration = 1.2

	resp, err := f.assets.Transcribe(ctx, owner, p.ID)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(resp.TimedScenes) != 2 || resp.TimedScenes[1].Start != 0.6 {
		t.Errorf("unexpected timed scenes %+v", resp.TimedScenes)
	}
	got := f.get(t, p.ID)
	if len(got.Transcript) != 2 || got.AudioDuration != 1.2 || len(got.TimedScenes) != 2 {
		t.Errorf("transcript not stored: %+v", got)
	}
}
