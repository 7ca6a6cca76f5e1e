package box

import (
	"archive/tar"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

func makeBox(t *testing.T, files map[string]string, gzipped bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if !gzipped {
		return buf.Bytes()
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write(buf.Bytes())
	gw.Close()
	return gzBuf.Bytes()
}

func TestReadMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"box.ovf":         "<xml/>",
		"./metadata.json": `{"provider": "virtualbox", "format": "ovf"}`,
	}
	afero.WriteFile(fs, "/plain.box", makeBox(t, files, false), 0644)
	afero.WriteFile(fs, "/gzipped.box", makeBox(t, files, true), 0644)

	for _, p := range []string{"/plain.box", "/gzipped.box"} {
		m, err := ReadMetadata(fs, p)
		if err != nil {
			t.Fatalf("ReadMetadata(%s) failed: %v", p, err)
		}
		if m.Provider != "virtualbox" {
			t.Errorf("%s: expected provider virtualbox, got %q", p, m.Provider)
		}
		if m.Format != "ovf" {
			t.Errorf("%s: expected format ovf, got %q", p, m.Format)
		}
	}
}

func TestReadMetadataMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/nometa.box", makeBox(t, map[string]string{"disk.img": "x"}, true), 0644)

	_, err := ReadMetadata(fs, "/nometa.box")
	if !errors.Is(err, ErrNoMetadata) {
		t.Errorf("Expected ErrNoMetadata, got %v", err)
	}
}

func TestProviderFromFilename(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/builds/devops.virtualbox.box", "virtualbox"},
		{"devops.libvirt.box", "libvirt"},
		{"devops.box", ""},
		{"devops.virtualbox.tar", ""},
	}

	for _, tt := range tests {
		if got := ProviderFromFilename(tt.path); got != tt.expected {
			t.Errorf("ProviderFromFilename(%s) = %q, expected %q", tt.path, got, tt.expected)
		}
	}
}

func TestReadMetadataScanLimit(t *testing.T) {
	old := metadataScanLimit
	metadataScanLimit = 4096
	defer func() { metadataScanLimit = old }()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	entries := []struct{ name, content string }{
		{"box-disk1.vmdk", strings.Repeat("x", 16384)},
		{"metadata.json", `{"provider": "virtualbox"}`},
	}
	for _, e := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(e.content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/late.virtualbox.box", buf.Bytes(), 0644)

	_, err := ReadMetadata(fs, "/late.virtualbox.box")
	if !errors.Is(err, ErrNoMetadata) {
		t.Fatalf("Expected ErrNoMetadata past the scan limit, got %v", err)
	}

	// The file name still names the provider
	if p, err := DetectProvider(fs, "/late.virtualbox.box"); err != nil || p != "virtualbox" {
		t.Errorf("Expected virtualbox from file name, got %q (%v)", p, err)
	}

	metadataScanLimit = 1 << 20
	m, err := ReadMetadata(fs, "/late.virtualbox.box")
	if err != nil {
		t.Fatalf("ReadMetadata failed within the scan limit: %v", err)
	}
	if m.Provider != "virtualbox" {
		t.Errorf("Expected provider virtualbox, got %q", m.Provider)
	}
}

func TestDetectProvider(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/meta.box", makeBox(t, map[string]string{"metadata.json": `{"provider": "libvirt"}`}, true), 0644)
	afero.WriteFile(fs, "/devops.vmware.box", []byte("this is not a real box file"), 0644)
	afero.WriteFile(fs, "/unknown.box", []byte("this is not a real box file"), 0644)

	if p, err := DetectProvider(fs, "/meta.box"); err != nil || p != "libvirt" {
		t.Errorf("Expected libvirt from metadata, got %q (%v)", p, err)
	}
	if p, err := DetectProvider(fs, "/devops.vmware.box"); err != nil || p != "vmware" {
		t.Errorf("Expected vmware from file name, got %q (%v)", p, err)
	}
	if _, err := DetectProvider(fs, "/unknown.box"); err == nil {
		t.Error("Expected an error when the provider cannot be determined")
	}
}
