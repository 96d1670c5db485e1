package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		watchDirs string
		usage     bool
		contains  string
	}{
		{name: "no watch dirs", usage: true, contains: "WATCH_DIRS"},
		{name: "unreadable config", config: filepath.Join(t.TempDir(), "missing.toml"), watchDirs: t.TempDir(), contains: "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(common.ConfigFileEnv, tt.config)
			t.Setenv("WATCH_DIRS", tt.watchDirs)
			t.Setenv("LOG_LEVEL", "error")

			err := run()
			if err == nil {
				t.Fatalf("run succeeded, want error")
			}
			if errors.Is(err, errUsage) != tt.usage {
				t.Fatalf("usage error = %v, want %v (err %v)", errors.Is(err, errUsage), tt.usage, err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Fatalf("err = %v, want %q", err, tt.contains)
			}
		})
	}
}
