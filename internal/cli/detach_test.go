package cli

import (
	"slices"
	"testing"
)

func TestDetachedPlayArgs(t *testing.T) {
	c := NewCLI()
	play, _, err := c.rootCmd.Find([]string{"play"})
	if err != nil {
		t.Fatalf("play command not found: %v", err)
	}
	if err := play.ParseFlags([]string{"--volume", "0.5", "--device", "null", "--repeat", "--pan", "-0.5", "--background"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	args := detachedPlayArgs(play, []string{"/sounds/rain.ogg"})

	if args[0] != "play" || args[1] != "--daemon-child" {
		t.Errorf("child must run play as a daemon child, got %v", args)
	}
	for _, want := range [][]string{
		{"--volume", "0.5"},
		{"--device", "null"},
	} {
		i := slices.Index(args, want[0])
		if i < 0 || i+1 >= len(args) || args[i+1] != want[1] {
			t.Errorf("expected %s %s in %v", want[0], want[1], args)
		}
	}
	for _, want := range []string{"--repeat=true", "--pan=-0.5", "--", "/sounds/rain.ogg"} {
		if !slices.Contains(args, want) {
			t.Errorf("expected %q in %v", want, args)
		}
	}
	for _, unwanted := range []string{"--background", "--background=true", "--config", "--seek=0s"} {
		if slices.Contains(args, unwanted) {
			t.Errorf("did not expect %q in %v", unwanted, args)
		}
	}
	if args[len(args)-1] != "/sounds/rain.ogg" {
		t.Errorf("files must come last, got %v", args)
	}
}

func TestShouldDetachPlaybackUnderTest(t *testing.T) {
	c := NewCLI()
	play, _, _ := c.rootCmd.Find([]string{"play"})
	if shouldDetachPlayback(play) {
		t.Error("playback must not detach while running under go test")
	}
}
