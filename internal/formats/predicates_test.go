package formats

import (
	"testing"

	"github.com/ytget/ytmp3/types"
)

func TestHasDirectURL(t *testing.T) {
	if !hasDirectURL(types.Format{URL: "http://x"}) {
		t.Fatal("expected true for non-empty URL")
	}
	if hasDirectURL(types.Format{URL: " "}) {
		t.Fatal("expected false for blank URL")
	}
}

func TestExtEquals(t *testing.T) {
	f := types.Format{MimeType: "audio/mp4; codecs=\"mp4a.40.2\""}
	if !extEquals(f, "m4a") {
		t.Fatal("m4a should match")
	}
	if !extEquals(f, ".M4A") {
		t.Fatal(".M4A should match")
	}
	if extEquals(f, "webm") {
		t.Fatal("webm should not match m4a")
	}
}

func TestHasAudio(t *testing.T) {
	if !hasAudio(types.Format{MimeType: "audio/webm"}) {
		t.Fatal("audio stream should have audio")
	}
	if !hasAudio(types.Format{MimeType: "video/mp4", AudioChannels: 2}) {
		t.Fatal("muxed stream should have audio")
	}
	if hasAudio(types.Format{MimeType: "video/mp4"}) {
		t.Fatal("video-only stream should not have audio")
	}
}

func TestItagEquals(t *testing.T) {
	if itagEquals(types.Format{Itag: 0}, 0) {
		t.Fatal("zero itag never matches")
	}
	if !itagEquals(types.Format{Itag: 140}, 140) {
		t.Fatal("140 should match")
	}
}
