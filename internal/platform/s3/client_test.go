package s3

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/platform/s3/s3test"
)

func fakeClient(t *testing.T) (*Client, *s3test.Server) {
	t.Helper()
	server := s3test.NewServer()
	t.Cleanup(server.Close)
	return NewFromS3(server.Client(), "fsn1"), server
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), "https://fsn1.your-objectstorage.com", "fsn1", "key", "secret", WithPathStyle())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.region != "fsn1" {
		t.Errorf("expected region fsn1, got %s", client.region)
	}
}

func TestEnsureBucket_Idempotent(t *testing.T) {
	t.Parallel()
	client, _ := fakeClient(t)

	for range 2 {
		if err := client.EnsureBucket(context.Background(), "sessions"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestEnsureBucket_Error(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer server.Close()

	client := NewFromS3(s3.New(s3.Options{
		Region:       "fsn1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("k", "s", ""),
	}), "fsn1")

	err := client.EnsureBucket(context.Background(), "sessions")
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !strings.Contains(err.Error(), "failed to create bucket sessions") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestPutObjectIfAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, server := fakeClient(t)
	if err := client.EnsureBucket(ctx, "sessions"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := client.PutObjectIfAbsent(ctx, "sessions", "a/1.json", []byte("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := client.PutObjectIfAbsent(ctx, "sessions", "a/1.json", []byte("second"))
	if !errdefs.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored, ok := server.Object("sessions", "a/1.json")
	if !ok || !bytes.Equal(stored, []byte("first")) {
		t.Errorf("expected first write to survive, got %q", stored)
	}
}

func TestGetObject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, _ := fakeClient(t)
	_ = client.EnsureBucket(ctx, "sessions")
	_ = client.PutObjectIfAbsent(ctx, "sessions", "k", []byte("payload"))

	data, err := client.GetObject(ctx, "sessions", "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("expected payload, got %q", data)
	}

	_, err = client.GetObject(ctx, "sessions", "missing")
	if !errdefs.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteObjectIfMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, server := fakeClient(t)
	_ = client.EnsureBucket(ctx, "sessions")
	_ = client.PutObjectIfAbsent(ctx, "sessions", "k", []byte("payload"))

	etag, err := client.HeadObject(ctx, "sessions", "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := client.DeleteObjectIfMatch(ctx, "sessions", "k", `"stale"`); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found for stale etag, got %v", err)
	}
	if err := client.DeleteObjectIfMatch(ctx, "sessions", "k", etag); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := server.Object("sessions", "k"); ok {
		t.Error("object still present after delete")
	}

	if _, err := client.HeadObject(ctx, "sessions", "k"); !errdefs.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := client.DeleteObjectIfMatch(ctx, "sessions", "k", etag); !errdefs.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"owned nil", isBucketAlreadyOwnedByYou, nil, false},
		{"not found nil", isNotFoundError, nil, false},
		{"precondition nil", isPreconditionFailed, nil, false},
		{"plain error", isNotFoundError, errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
