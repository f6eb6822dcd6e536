package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestXDGPathsUseAppDir(t *testing.T) {
	x := NewXDGDirsWithFilesystem(afero.NewMemMapFs())

	configPaths := x.GetConfigPaths("config.json")
	if len(configPaths) == 0 {
		t.Fatal("expected at least one config path")
	}
	for _, p := range configPaths {
		if !strings.HasSuffix(p, filepath.Join("mixdown", "config.json")) {
			t.Errorf("config path %q is not under mixdown/", p)
		}
	}

	for _, p := range x.GetSoundPaths() {
		if !strings.HasSuffix(p, filepath.Join("mixdown", "sounds")) {
			t.Errorf("sound path %q is not mixdown/sounds", p)
		}
	}

	if got := x.GetCachePath("logs"); !strings.HasSuffix(got, filepath.Join("mixdown", "logs")) {
		t.Errorf("unexpected cache path %q", got)
	}
}

func TestCreateCacheDir(t *testing.T) {
	memFS := afero.NewMemMapFs()
	x := NewXDGDirsWithFilesystem(memFS)

	if err := x.CreateCacheDir("logs"); err != nil {
		t.Fatalf("CreateCacheDir failed: %v", err)
	}
	if ok, _ := afero.DirExists(memFS, x.GetCachePath("logs")); !ok {
		t.Error("cache dir was not created")
	}
}
