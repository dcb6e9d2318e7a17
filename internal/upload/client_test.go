package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/logging"
)

const sampleCID = "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"

func sampleRequest() mint.Request {
	return mint.Request{
		AttemptID:     "attempt-7",
		Submitter:     "0x1111111111111111111111111111111111111111",
		DisplayName:   "Test Player",
		Position:      mint.PositionForward,
		Nationality:   "Brazil",
		GoalCount:     10,
		MatchesPlayed: 20,
		TitlesWon:     1,
		Image:         mint.Image{Filename: "card.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")},
	}
}

func TestUploadSendsMultipartFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(logging.RequestIDHeader) != "attempt-7" {
			t.Errorf("expected attempt id header, got %q", r.Header.Get(logging.RequestIDHeader))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		want := map[string]string{
			"name":        "Test Player",
			"position":    "Forward",
			"nationality": "Brazil",
			"goals":       "10",
			"matches":     "20",
			"worldCups":   "1",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("field %s: expected %q, got %q", k, v, got)
			}
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if header.Filename != "card.png" || len(data) != 8 {
				t.Errorf("unexpected image part %s (%d bytes)", header.Filename, len(data))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"metadataHash":"` + sampleCID + `"}`))
	}))
	defer server.Close()

	id, err := NewClient(server.URL+"/", Options{StrictCID: true}).Upload(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if id != sampleCID {
		t.Fatalf("expected %s, got %s", sampleCID, id)
	}
}

func TestUploadNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pinning backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, Options{}).Upload(context.Background(), sampleRequest())
	var uerr *mint.UploadError
	if !errors.As(err, &uerr) || uerr.Kind != mint.UploadServerStatus || uerr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 server status error, got %v", err)
	}
}

func TestUploadMalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":     `<html>oops</html>`,
		"missing hash": `{"imageHash":"x"}`,
		"invalid cid":  `{"metadataHash":"not-a-cid"}`,
		"blank hash":   `{"metadataHash":"   "}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, Options{StrictCID: true}).Upload(context.Background(), sampleRequest())
			var uerr *mint.UploadError
			if !errors.As(err, &uerr) || uerr.Kind != mint.UploadMalformed {
				t.Fatalf("expected malformed error, got %v", err)
			}
		})
	}
}

func TestUploadLenientCIDAcceptsOpaqueIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadataHash":"Qm123"}`))
	}))
	defer server.Close()

	id, err := NewClient(server.URL, Options{}).Upload(context.Background(), sampleRequest())
	if err != nil || id != "Qm123" {
		t.Fatalf("expected Qm123, got %q, %v", id, err)
	}
}

func TestUploadTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, Options{}).Upload(context.Background(), sampleRequest())
	var uerr *mint.UploadError
	if !errors.As(err, &uerr) || uerr.Kind != mint.UploadTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}
