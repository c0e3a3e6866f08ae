package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// fakeS3 answers the read-side S3 calls for a single bucket with path-style addressing.
func fakeS3(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+bucket), "/")
		switch {
		case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
			prefix := r.URL.Query().Get("prefix")
			var b strings.Builder
			b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
			fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><IsTruncated>false</IsTruncated>", bucket, prefix)
			for k := range objects {
				if strings.HasPrefix(k, prefix) {
					fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(objects[k]))
				}
			}
			b.WriteString("</ListBucketResult>")
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(b.String()))
		case r.Method == http.MethodGet:
			body, ok := objects[key]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		case r.Method == http.MethodHead:
			if _, ok := objects[key]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
}

func newTestS3Store(t *testing.T, objects map[string]string) *S3Store {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	srv := fakeS3(t, "demo", objects)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), S3Config{Bucket: "demo", Region: "us-east-1", EndpointURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestS3StoreRead(t *testing.T) {
	ctx := context.Background()
	store := newTestS3Store(t, map[string]string{
		"users/b.json": `{"id":"b"}`,
		"users/a.json": `{"id":"a"}`,
		"tasks/t.json": `{"id":"t"}`,
	})

	data, err := store.Get(ctx, "users/a.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"id":"a"}` {
		t.Errorf("Get = %s", data)
	}

	if _, err := store.Get(ctx, "users/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}

	keys, err := store.List(ctx, "users/")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"users/a.json", "users/b.json"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}

	if err := store.Delete(ctx, "users/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing = %v, want ErrNotFound", err)
	}
}
