package main

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func Test_readAll_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := readAll(p)
	if err != nil || string(b) != "hello" {
		t.Fatalf("readAll: b=%q err=%v", b, err)
	}
}

func Test_multipartArchive(t *testing.T) {
	body, contentType, err := multipartArchive([]byte("zipdata"), "docs.zip", "8b5a52f5-1e52-4e43-9a9b-9a60c3a3a001")
	if err != nil {
		t.Fatalf("multipartArchive: %v", err)
	}
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil || mt != "multipart/form-data" {
		t.Fatalf("content type %q: %v", contentType, err)
	}

	mr := multipart.NewReader(body, params["boundary"])
	form, err := mr.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	if got := form.Value["parentId"]; len(got) != 1 || got[0] != "8b5a52f5-1e52-4e43-9a9b-9a60c3a3a001" {
		t.Fatalf("parentId = %v", got)
	}
	files := form.File["archive"]
	if len(files) != 1 || files[0].Filename != "docs.zip" {
		t.Fatalf("archive part = %+v", files)
	}
	f, err := files[0].Open()
	if err != nil {
		t.Fatalf("open part: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "zipdata" {
		t.Fatalf("archive payload = %q", data)
	}
}

func Test_apiClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/documents/tree":
			if r.Header.Get("X-Actor-Id") != "alice" {
				t.Errorf("missing actor header")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"title":"Root"}]`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"node not found"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	cli := newClient(srv.URL+"/", "alice")

	var out []map[string]any
	if err := cli.getJSON(context.Background(), "/api/documents/tree", &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if len(out) != 1 || out[0]["title"] != "Root" {
		t.Fatalf("out = %+v", out)
	}

	err := cli.getJSON(context.Background(), "/missing", &out)
	var ae *apiError
	if !errors.As(err, &ae) {
		t.Fatalf("want *apiError, got %v", err)
	}
	if ae.Status != http.StatusNotFound || ae.Message != "node not found" {
		t.Fatalf("apiError = %+v", ae)
	}
}
