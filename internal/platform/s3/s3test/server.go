// Package s3test runs an in-memory, path-style S3 endpoint for tests.
//
// It understands just enough of the protocol for the s3 package: bucket
// creation, object PUT/GET/HEAD/DELETE, and the If-None-Match / If-Match
// preconditions.
package s3test

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type object struct {
	data []byte
	etag string
}

// Server is a fake S3 endpoint.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	buckets  map[string]map[string]object
	requests []string
}

// NewServer starts a fake endpoint. Callers must Close it.
func NewServer() *Server {
	s := &Server{buckets: make(map[string]map[string]object)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Client returns an SDK client pointed at the fake endpoint.
func (s *Server) Client() *s3.Client {
	return s3.New(s3.Options{
		Region:       "fsn1",
		BaseEndpoint: aws.String(s.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		HTTPClient:   &http.Client{Transport: &http.Transport{}},
	})
}

// Object returns the stored object and whether it exists.
func (s *Server) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.buckets[bucket][key]
	return o.data, ok
}

// Requests returns "METHOD /path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	if key == "" {
		s.handleBucket(w, r, bucket)
		return
	}

	objects, ok := s.buckets[bucket]
	if !ok {
		xmlError(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	existing, exists := objects[key]

	switch r.Method {
	case http.MethodPut:
		if r.Header.Get("If-None-Match") == "*" && exists {
			xmlError(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			xmlError(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		sum := md5.Sum(data)
		o := object{data: data, etag: `"` + hex.EncodeToString(sum[:]) + `"`}
		objects[key] = o
		w.Header().Set("ETag", o.etag)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		if !exists {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			xmlError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("ETag", existing.etag)
		w.Header().Set("Content-Length", fmt.Sprint(len(existing.data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(existing.data)
		}
	case http.MethodDelete:
		if !exists {
			xmlError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		if m := r.Header.Get("If-Match"); m != "" && m != existing.etag {
			xmlError(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		delete(objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		xmlError(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (s *Server) handleBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if r.Method != http.MethodPut {
		xmlError(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}
	if _, ok := s.buckets[bucket]; ok {
		xmlError(w, http.StatusConflict, "BucketAlreadyOwnedByYou")
		return
	}
	s.buckets[bucket] = make(map[string]object)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><CreateBucketResult/>`))
}

func xmlError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>%s</Code>
  <Message>%s</Message>
</Error>`, code, code)
}
