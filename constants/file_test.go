package constants

import "testing"

func TestMapExtToFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{".pdf", PDF},
		{"PDF", PDF},
		{".PNG", IMAGE},
		{"tiff", IMAGE},
		{".heic", IMAGE},
		{".docx", UNKNOWN},
		{"", UNKNOWN},
	}
	for _, tt := range tests {
		if got := MapExtToFormat(tt.ext); got != tt.want {
			t.Fatalf("MapExtToFormat(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestIsHEICExt(t *testing.T) {
	if !IsHEICExt(".HEIC") || !IsHEICExt("heif") {
		t.Fatalf("expected heic/heif to be detected")
	}
	if IsHEICExt(".png") {
		t.Fatalf("png is not heic")
	}
}
