package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "inline", src: Source{Value: " inline "}, want: "inline"},
		{name: "file wins", src: Source{Value: "inline", File: keyFile}, want: "from-file"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, wantErr: `api key file "` + emptyFile + `" is empty`},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, wantErr: "reading secret from file"},
		{name: "unset", src: Source{Name: "dsn"}, wantErr: "dsn is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %q", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadOptional(t *testing.T) {
	got, err := LoadOptional(Source{Name: "redis password"})
	if err != nil || got != "" {
		t.Fatalf("expected empty secret, got %q, %v", got, err)
	}

	got, err = LoadOptional(Source{Value: "pw"})
	if err != nil || got != "pw" {
		t.Fatalf("expected pw, got %q, %v", got, err)
	}

	if _, err := LoadOptional(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"abc":        "***",
		"abcd":       "****",
		"secret-key": "******-key",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
