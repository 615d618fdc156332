package s3

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/voxhire/voxhire/pkg/blob"
)

// newTestStore builds a Store against a fake MinIO endpoint with static
// credentials. Presigning signs locally, so no server needs to be running.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "voxhire-media",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIATESTKEY",
		SecretAccessKey: "test-secret",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func parsePresigned(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse presigned url %q: %v", raw, err)
	}
	return u
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(context.Background(), Config{Bucket: "b"}); err == nil {
		t.Error("New without region: expected error, got nil")
	}
	if _, err := New(context.Background(), Config{Region: "us-east-1"}); err == nil {
		t.Error("New without bucket: expected error, got nil")
	}
}

func TestPresignGet_PathStyleURL(t *testing.T) {
	s := newTestStore(t)

	raw, err := s.PresignGet(context.Background(), "interviews/1/42/avatar.mp4", 5*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}

	u := parsePresigned(t, raw)
	if u.Host != "localhost:9000" {
		t.Errorf("host = %q, want %q", u.Host, "localhost:9000")
	}
	// A custom endpoint switches to path-style: bucket before key.
	if want := "/voxhire-media/interviews/1/42/avatar.mp4"; u.Path != want {
		t.Errorf("path = %q, want %q", u.Path, want)
	}

	q := u.Query()
	if got := q.Get("X-Amz-Expires"); got != "300" {
		t.Errorf("X-Amz-Expires = %q, want %q", got, "300")
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Error("X-Amz-Signature missing from presigned url")
	}
	if cred := q.Get("X-Amz-Credential"); !strings.Contains(cred, "AKIATESTKEY") {
		t.Errorf("X-Amz-Credential = %q, want it to carry the access key id", cred)
	}
}

func TestPresignPut_SignsContentType(t *testing.T) {
	s := newTestStore(t)

	raw, err := s.PresignPut(context.Background(), "interviews/1/42/response_7_1700000000123.webm", "video/webm", 10*time.Minute)
	if err != nil {
		t.Fatalf("PresignPut: %v", err)
	}

	u := parsePresigned(t, raw)
	if want := "/voxhire-media/interviews/1/42/response_7_1700000000123.webm"; u.Path != want {
		t.Errorf("path = %q, want %q", u.Path, want)
	}

	q := u.Query()
	if got := q.Get("X-Amz-Expires"); got != "600" {
		t.Errorf("X-Amz-Expires = %q, want %q", got, "600")
	}
	// The content type is part of the signature, so the uploader cannot
	// swap it for something else.
	if signed := q.Get("X-Amz-SignedHeaders"); !strings.Contains(signed, "content-type") {
		t.Errorf("X-Amz-SignedHeaders = %q, want it to include content-type", signed)
	}
}

func TestPresign_DefaultTTLs(t *testing.T) {
	s := newTestStore(t)

	raw, err := s.PresignGet(context.Background(), "tts/question_7.mp3", 0)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	want := strconv.Itoa(int(blob.DefaultGetTTL / time.Second))
	if got := parsePresigned(t, raw).Query().Get("X-Amz-Expires"); got != want {
		t.Errorf("get X-Amz-Expires = %q, want %q", got, want)
	}

	raw, err = s.PresignPut(context.Background(), "resumes/9/resume.pdf", "application/pdf", -1)
	if err != nil {
		t.Fatalf("PresignPut: %v", err)
	}
	want = strconv.Itoa(int(blob.DefaultPutTTL / time.Second))
	if got := parsePresigned(t, raw).Query().Get("X-Amz-Expires"); got != want {
		t.Errorf("put X-Amz-Expires = %q, want %q", got, want)
	}
}
