package shared

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tc := []struct {
		name  string
		title string
		want  string
	}{
		{name: "basic normalization", title: "Dark Star", want: "dark star"},
		{name: "extra whitespace", title: "  Dark   Star  ", want: "dark star"},
		{name: "segue marker", title: "Dark Star >", want: "dark star"},
		{name: "arrow segue", title: "Scarlet Begonias ->", want: "scarlet begonias"},
		{name: "mixed case", title: "DaRk StAr", want: "dark star"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.title); got != tt.want {
				t.Errorf("NormalizeTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{-4, "0:00"},
		{59.9, "0:59"},
		{61, "1:01"},
		{3725, "1:02:05"},
	}

	for _, tt := range tc {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("GenerateID() should return unique non-empty ids, got %q and %q", a, b)
	}
}

func TestArchiveDetailsURL(t *testing.T) {
	got := ArchiveDetailsURL("https://archive.org/", "gd1977-05-08.sbd")
	if got != "https://archive.org/details/gd1977-05-08.sbd" {
		t.Errorf("ArchiveDetailsURL() = %q", got)
	}
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		if _, err := browserCommand(goos, "https://archive.org"); err != nil {
			t.Errorf("browserCommand(%s) returned error: %v", goos, err)
		}
	}

	if _, err := browserCommand("plan9", "https://archive.org"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
