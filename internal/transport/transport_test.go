package transport

import (
	"errors"
	"testing"

	"github.com/ralt/caryatid/internal/models"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in       string
		expected Kind
		wantErr  bool
	}{
		{"local", KindLocal, false},
		{"COPY", KindLocal, false},
		{"scp", KindSCP, false},
		{"s3", KindS3, false},
		{"ftp", 0, true},
	}

	for _, tt := range tests {
		kind, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && kind != tt.expected {
			t.Errorf("ParseKind(%q) = %s, expected %s", tt.in, kind, tt.expected)
		}
	}
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing destination", Config{Kind: KindLocal}},
		{"scp without host", Config{Kind: KindSCP, Destination: "/srv/boxes"}},
		{"scp without path", Config{Kind: KindSCP, Destination: "me@example.com:"}},
		{"s3 without scheme", Config{Kind: KindS3, Destination: "bucket/key", AccessKey: "a", SecretKey: "s"}},
		{"s3 without credentials", Config{Kind: KindS3, Destination: "https://bucket.s3.amazonaws.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if phase, ok := models.PhaseOf(err); !ok || phase != models.PhaseConfig {
				t.Errorf("Expected a Config error, got %v", err)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "put", Location: "https://b.example.com/x.box", StatusCode: 403, Reason: "Forbidden"}
	expected := "put https://b.example.com/x.box: status code '403': Forbidden"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	notFound := &Error{Op: "fetch", Location: "/srv/testbox.json", Err: ErrNotFound}
	if !IsNotFound(notFound) {
		t.Error("IsNotFound should match an error wrapping ErrNotFound")
	}
	if IsNotFound(errors.New("connection reset")) {
		t.Error("IsNotFound should not match other errors")
	}
}
