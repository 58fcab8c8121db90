package shared

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	SetLogLevel(logger, ParseLogLevel("warn"))

	child := WithLogger(logger, "component", "test")
	child.Info("hidden")
	child.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=test") {
		t.Errorf("unexpected log output: %q", out)
	}

	if ParseLogLevel("bogus") != log.InfoLevel {
		t.Error("unknown level should default to info")
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "link.log")

	logger, f, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	logger.Info("written to file")
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestBrowserCommand(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	cases := map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"}
	for goos, want := range cases {
		t.Run(goos, func(t *testing.T) {
			getRuntime = func() string { return goos }
			name, args, err := browserCommand("https://app.plex.tv/auth")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != want {
				t.Errorf("launcher = %q, want %q", name, want)
			}
			if args[len(args)-1] != "https://app.plex.tv/auth" {
				t.Errorf("url should be the last argument, got %v", args)
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		err := OpenBrowser("https://app.plex.tv/auth")
		if err == nil || !strings.Contains(err.Error(), "no browser launcher for plan9") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
	})
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateToken(32)
	if a == b {
		t.Error("tokens should differ")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("token should be URL-safe, got %q", a)
	}
	if len(a) != 43 {
		t.Errorf("expected 43 chars for 32 bytes, got %d", len(a))
	}
}

func TestIsAuthFailure(t *testing.T) {
	tc := []struct {
		msg  string
		want bool
	}{
		{"GET watchlist: status 401", true},
		{"Unauthorized", true},
		{"request UNAUTHORIZED by server", true},
		{"status 500", false},
		{"", false},
	}
	for _, tt := range tc {
		t.Run(tt.msg, func(t *testing.T) {
			if got := IsAuthFailure(tt.msg); got != tt.want {
				t.Errorf("IsAuthFailure(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate(strings.Repeat("x", 1200), 1000); len(got) != 1000 {
		t.Errorf("expected 1000 bytes, got %d", len(got))
	}
	// "é" is two bytes; cutting after its first byte must drop it entirely.
	if got := Truncate("aé", 2); got != "a" {
		t.Errorf("got %q", got)
	}

	t.Run("Invalid Bytes Before The Cut", func(t *testing.T) {
		msg := "\xff401 Unauthorized " + strings.Repeat("x", 2000)
		got := Truncate(msg, 1000)
		if len(got) != 1000 {
			t.Fatalf("expected 1000 bytes, got %d", len(got))
		}
		if !strings.HasPrefix(got, "\xff401 Unauthorized") {
			t.Errorf("message prefix lost: %q", got[:24])
		}
	})

	if got := Truncate("plex", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestTokenCipher(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c, err := NewTokenCipher("passphrase")
		if err != nil {
			t.Fatal(err)
		}
		enc, err := c.Encrypt("plex-token")
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(enc, "plex-token") {
			t.Error("ciphertext leaks plaintext")
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatal(err)
		}
		if dec != "plex-token" {
			t.Errorf("got %q", dec)
		}
	})

	t.Run("base64 key", func(t *testing.T) {
		key := "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
		c, err := NewTokenCipher(key)
		if err != nil {
			t.Fatal(err)
		}
		for i := range 32 {
			if c.key[i] != byte(i) {
				t.Fatalf("key byte %d = %d", i, c.key[i])
			}
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		a, _ := NewTokenCipher("one")
		b, _ := NewTokenCipher("two")
		enc, _ := a.Encrypt("secret")
		if _, err := b.Decrypt(enc); !errors.Is(err, ErrDecrypt) {
			t.Errorf("expected ErrDecrypt, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		c, _ := NewTokenCipher("k")
		if _, err := c.Decrypt("!!"); !errors.Is(err, ErrDecrypt) {
			t.Errorf("expected ErrDecrypt, got %v", err)
		}
		if _, err := c.Decrypt("AAAA"); !errors.Is(err, ErrDecrypt) {
			t.Errorf("expected ErrDecrypt for short input, got %v", err)
		}
	})

	t.Run("empty secret", func(t *testing.T) {
		if _, err := NewTokenCipher(""); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
