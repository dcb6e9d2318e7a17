// Package uploadserver implements the content upload service the mint client
// talks to: it pins card artwork and an ERC-721 style metadata document and
// serves both back by content identifier.
package uploadserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/pinstore"
	"github.com/Its-donkey/dynamix-mint/logging"
)

const defaultMaxUploadBytes = 12 << 20

// Options configures a Server.
type Options struct {
	Store          pinstore.Store
	Logger         *logging.Logger
	MaxUploadBytes int64
	// GatewayURL, when set, is used for the metadata image link instead of
	// an ipfs:// URI.
	GatewayURL string
}

// Server exposes the upload HTTP handlers backed by a pinstore.
type Server struct {
	store      pinstore.Store
	logger     *logging.Logger
	maxBytes   int64
	gatewayURL string
}

// New constructs a Server with the provided dependencies.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		store:      opts.Store,
		logger:     opts.Logger,
		maxBytes:   opts.MaxUploadBytes,
		gatewayURL: strings.TrimRight(strings.TrimSpace(opts.GatewayURL), "/"),
	}
}

// Handler returns the HTTP handler for the upload service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/ipfs/{cid}", s.handleContent)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := otelhttp.NewHandler(addCORS(mux), "upload-server")
	return logging.NewHTTPLogger(s.logger).Middleware(handler)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	log := s.logger.WithRequestID(r.Header.Get(logging.RequestIDHeader)).WithCategory("upload")

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxBytes))
			return
		}
		respondError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	draft, fieldErrs := parseDraft(r)
	for field, msg := range mint.Validate(draft) {
		if _, ok := fieldErrs[field]; !ok {
			fieldErrs[field] = msg
		}
	}
	if len(fieldErrs) > 0 {
		respondJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid submission", Fields: fieldErrs})
		return
	}

	ctx := r.Context()
	imageID, err := pinstore.Pin(ctx, s.store, http.DetectContentType(draft.Image.Data), draft.Image.Data)
	if err != nil {
		log.Error("pin image failed", err, nil)
		respondError(w, http.StatusInternalServerError, errors.New("could not store image"))
		return
	}

	doc, err := json.Marshal(BuildMetadata(draft, s.imageURI(imageID)))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	metadataID, err := pinstore.Pin(ctx, s.store, "application/json", doc)
	if err != nil {
		log.Error("pin metadata failed", err, nil)
		respondError(w, http.StatusInternalServerError, errors.New("could not store metadata"))
		return
	}

	log.Info("card pinned", map[string]any{"image": imageID, "metadata": metadataID, "size": len(draft.Image.Data)})
	respondJSON(w, http.StatusOK, uploadResponse{MetadataHash: metadataID, ImageHash: imageID})
}

func (s *Server) imageURI(id string) string {
	if s.gatewayURL != "" {
		return s.gatewayURL + "/ipfs/" + id
	}
	return mint.MetadataURI(id)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	id, err := pinstore.Normalize(r.PathValue("cid"))
	if err != nil {
		respondError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	obj, err := s.store.Get(r.Context(), id)
	if errors.Is(err, pinstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", `"`+obj.CID+`"`)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(obj.Data)
	}
}

// parseDraft reads the multipart fields into a Draft. Numeric fields that do
// not parse are reported directly; everything else is left to mint.Validate.
func parseDraft(r *http.Request) (mint.Draft, mint.FieldErrors) {
	errs := mint.FieldErrors{}
	draft := mint.Draft{
		DisplayName: r.FormValue(mint.FieldName),
		Nationality: r.FormValue(mint.FieldNationality),
	}
	if p, ok := mint.ParsePosition(r.FormValue(mint.FieldPosition)); ok {
		draft.Position = p
	}

	number := func(field string, target *int) {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			errs[field] = "A number is required"
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs[field] = "Must be a whole number"
			return
		}
		*target = n
	}
	number(mint.FieldGoals, &draft.GoalCount)
	number(mint.FieldMatches, &draft.MatchesPlayed)
	number(mint.FieldTitles, &draft.TitlesWon)

	file, header, err := r.FormFile(mint.FieldImage)
	if err == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr == nil {
			draft.Image = &mint.Image{Filename: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}
			if msg := mint.CheckPicture(draft.Image); msg != "" {
				errs[mint.FieldImage] = msg
			}
		}
	}
	return draft, errs
}
