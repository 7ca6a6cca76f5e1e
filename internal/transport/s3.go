package transport

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ralt/caryatid/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// s3HostSuffix marks virtual-hosted-style endpoints, where the bucket is the first host label
	s3HostSuffix = ".s3.amazonaws.com"

	defaultContentType = "application/octet-stream"
)

// S3 publishes to object storage with signed HTTP requests
type S3 struct {
	fs          afero.Fs
	endpoint    *url.URL
	accessKey   string
	secretKey   string
	contentType string
	client      *http.Client
	now         func() time.Time
}

// NewS3 creates an object storage backend for an http(s)://bucket.host/prefix destination
func NewS3(cfg Config) (*S3, error) {
	u, err := url.Parse(cfg.Destination)
	if err != nil {
		return nil, models.NewConfigError("invalid s3 destination %q: %v", cfg.Destination, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, models.NewConfigError("invalid s3 destination %q (expected https://bucket.host/prefix)", cfg.Destination)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, models.NewConfigError("s3 backend requires an access key and a secret key")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	contentType := cfg.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &S3{
		fs:          fs,
		endpoint:    u,
		accessKey:   cfg.AccessKey,
		secretKey:   cfg.SecretKey,
		contentType: contentType,
		client:      client,
		now:         time.Now,
	}, nil
}

// Kind returns KindS3
func (s *S3) Kind() Kind {
	return KindS3
}

// Location returns the URL of a key below the destination prefix
func (s *S3) Location(elem ...string) string {
	u := *s.endpoint
	u.Path = path.Join(append([]string{"/", u.Path}, elem...)...)
	return u.String()
}

// URL returns location, which is already a download URL
func (s *S3) URL(location string) string {
	return location
}

// Put uploads localPath to location with a signed PUT request
func (s *S3) Put(ctx context.Context, localPath, location string) error {
	f, err := s.fs.Open(localPath)
	if err != nil {
		return &Error{Op: "put", Location: location, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &Error{Op: "put", Location: location, Err: err}
	}

	req, err := s.newRequest(ctx, http.MethodPut, location, s.contentTypeFor(location), f)
	if err != nil {
		return &Error{Op: "put", Location: location, Err: err}
	}
	req.ContentLength = info.Size()

	logrus.Debugf("Uploading %s (%d bytes) to %s", localPath, info.Size(), location)
	resp, err := s.client.Do(req)
	if err != nil {
		return &Error{Op: "put", Location: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError("put", location, resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Fetch downloads location with a signed GET request. A 404 response is reported as ErrNotFound.
func (s *S3) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, location, "", nil)
	if err != nil {
		return nil, &Error{Op: "fetch", Location: location, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Op: "fetch", Location: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &Error{
			Op:         "fetch",
			Location:   location,
			StatusCode: resp.StatusCode,
			Err:        ErrNotFound,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError("fetch", location, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "fetch", Location: location, Err: err}
	}
	return data, nil
}

func (s *S3) newRequest(ctx context.Context, method, location, contentType string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, location, body)
	if err != nil {
		return nil, err
	}

	date := RFC2822Date(s.now())
	signature := Sign(s.secretKey, StringToSign(method, contentType, date, resourcePath(u)))

	req.Header.Set("Date", date)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", fmt.Sprintf("AWS %s:%s", s.accessKey, signature))
	return req, nil
}

func (s *S3) contentTypeFor(location string) string {
	switch path.Ext(location) {
	case ".json":
		return "application/json"
	case ".asc":
		return "application/pgp-signature"
	case ".pub":
		return "application/pgp-keys"
	default:
		return s.contentType
	}
}

// RFC2822Date formats t as an RFC 2822 date, e.g. "Mon, 07 Nov 2016 19:32:05 +0000"
func RFC2822Date(t time.Time) string {
	return t.Format(time.RFC1123Z)
}

// StringToSign builds the canonical string signed for a request
func StringToSign(method, contentType, date, resource string) string {
	return strings.Join([]string{method, "", contentType, date, resource}, "\n")
}

// Sign returns the base64 HMAC-SHA1 of stringToSign keyed with secret
func Sign(secret, stringToSign string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// resourcePath returns the bucket-qualified path of u
func resourcePath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	host := u.Hostname()
	if strings.HasSuffix(host, s3HostSuffix) {
		bucket := strings.TrimSuffix(host, s3HostSuffix)
		return "/" + bucket + p
	}
	return p
}

func responseError(op, location string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	reason := http.StatusText(resp.StatusCode)
	if detail := strings.TrimSpace(string(body)); detail != "" {
		reason = reason + ": " + detail
	}
	return &Error{
		Op:         op,
		Location:   location,
		StatusCode: resp.StatusCode,
		Reason:     reason,
	}
}
