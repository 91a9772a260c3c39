package lfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"lfsd/internal/auth"
)

// Config holds configuration for the LFS server core.
type Config struct {
	// Store persists object content. Required.
	Store ContentStore

	// Auth decides whether a request may proceed. Defaults to no auth.
	Auth auth.AuthEngine

	// PublicURL, when set, overrides the scheme and host used for links
	// embedded in JSON responses. Needed behind TLS terminators and proxies
	// that rewrite the request URL. Example: "https://lfs.example.com".
	PublicURL string
}

// Server implements the Git LFS HTTP API (legacy pointer API and batch API)
// on top of a ContentStore. All state is request-scoped; the store and the
// filesystem behind it are the only shared resources.
type Server struct {
	cfg Config
}

// NewServer validates cfg and returns a new Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("Store must not be nil")
	}

	if cfg.Auth == nil {
		cfg.Auth = auth.NewNoneAuthEngine()
	}

	return &Server{cfg: cfg}, nil
}

// Handler returns an http.Handler implementing the LFS API. Authentication
// runs before routing; every request produces exactly one log line.
func (s *Server) Handler() http.Handler {
	root := http.HandlerFunc(s.handleRoot)
	return LogRequest(Recover(RequireAuthentication(SlashFix(root), s.cfg.Auth)))
}

// handleRoot classifies the path and dispatches to the per-operation
// handlers. Method applicability is enforced here, not in the classifier.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Host == "" {
		writeError(w, r, http.StatusBadRequest, "Wrong host")
		return
	}

	switch rt := classify(r.URL.Path); rt.kind {
	case routeBatch:
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleBatch(w, r)

	case routeLegacy:
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleLegacyPost(w, r)

	case routeObject:
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			s.handleGetMeta(w, r, rt.oid)
		case http.MethodPost:
			s.handleVerify(w, r, rt.oid)
		case http.MethodPut:
			s.handlePut(w, r, rt.oid)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case routeDownload:
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			s.handleDownload(w, r, rt.oid)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		}

	default:
		writeError(w, r, http.StatusNotFound, "Wrong path")
	}
}

// ------ Individual API HTTP handlers ------

// handleGetMeta implements GET/HEAD /objects/{oid}: object metadata with
// self and download links.
func (s *Server) handleGetMeta(w http.ResponseWriter, r *http.Request, oid string) {
	size, ok, err := s.cfg.Store.Stat(r.Context(), oid)
	if err != nil {
		slog.Error("Stat object", "oid", oid, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "Object not found")
		return
	}

	base := s.linkBase(r)
	writeJSON(w, r, http.StatusOK, MetaResponse{
		OID:  oid,
		Size: size,
		Links: &ObjectLinks{
			Self:     &Link{Href: objectURL(base, oid)},
			Download: &Link{Href: downloadURL(base, oid)},
		},
	})
}

// handleDownload implements GET/HEAD /data/objects/{oid}: the raw object
// bytes, streamed without buffering. HEAD returns headers only and never
// opens the object file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, oid string) {
	size, ok, err := s.cfg.Store.Stat(r.Context(), oid)
	if err != nil {
		slog.Error("Stat object", "oid", oid, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "Object not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	content, err := s.cfg.Store.Open(r.Context(), oid)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, r, http.StatusNotFound, "Object not found")
			return
		}
		slog.Error("Open object", "oid", oid, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer content.Close()

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		// The response is already in flight; all we can do is log.
		slog.Error("Stream object", "oid", oid, "err", err)
	}
}

// handleLegacyPost implements the legacy single-object POST /objects API.
func (s *Server) handleLegacyPost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	oid, size, err := decodeLegacyRequest(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid body")
		return
	}

	stored, ok, statErr := s.cfg.Store.Stat(r.Context(), oid)
	if statErr != nil {
		slog.Error("Stat object", "oid", oid, "err", statErr)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	base := s.linkBase(r)

	switch {
	case ok && stored == size:
		writeJSON(w, r, http.StatusOK, MetaResponse{
			OID:  oid,
			Size: size,
			Links: &ObjectLinks{
				Download: &Link{Href: downloadURL(base, oid)},
			},
		})

	case ok:
		writeError(w, r, http.StatusBadRequest, "Wrong object size")

	default:
		writeJSON(w, r, http.StatusAccepted, MetaResponse{
			Links: &ObjectLinks{
				Upload: &Link{Href: objectURL(base, oid)},
				Verify: &Link{Href: objectURL(base, oid)},
			},
		})
	}
}

// handleVerify implements POST /objects/{oid}: confirm the object has been
// stored. Size is not rechecked here; publication already verified it.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, oid string) {
	_, ok, err := s.cfg.Store.Stat(r.Context(), oid)
	if err != nil {
		slog.Error("Stat object", "oid", oid, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "Verification failed: object not found")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleBatch implements POST /objects/batch. Only the "upload" operation is
// supported; per-object existence checks run concurrently and the response
// preserves request order.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	operation, rawObjects, err := decodeBatchRequest(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid body")
		return
	}

	// The operation decides first: a download request is rejected no matter
	// what its object list contains.
	if operation == "download" {
		writeError(w, r, http.StatusBadRequest, "Not implemented")
		return
	}

	objects, err := validateBatchObjects(rawObjects)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid body")
		return
	}

	base := s.linkBase(r)
	items := make([]BatchItem, len(objects))

	eg, ctx := errgroup.WithContext(r.Context())
	for i, obj := range objects {
		eg.Go(func() error {
			stored, ok, err := s.cfg.Store.Stat(ctx, obj.oid)
			if err != nil {
				return fmt.Errorf("stat %s: %w", obj.oid, err)
			}

			item := BatchItem{OID: obj.oid, Size: obj.size}
			switch {
			case ok && stored == obj.size:
				// Already present; nothing for the client to do.
			case ok:
				item.Error = &BatchError{Code: 422, Message: "Wrong object size"}
			default:
				item.Actions = &BatchActions{
					Upload: &Link{Href: objectURL(base, obj.oid)},
					Verify: &Link{Href: objectURL(base, obj.oid)},
				}
			}

			items[i] = item
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		slog.Error("Batch stat", "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, BatchResponse{
		Transfer: transferBasic,
		Objects:  items,
	})
}

// handlePut implements PUT /objects/{oid}: the upload path. The declared
// size comes from the transfer's Content-Length, independent of any
// JSON-declared size from an earlier negotiation.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, oid string) {
	defer r.Body.Close()

	if r.ContentLength < 0 {
		writeError(w, r, http.StatusBadRequest, "Missing Content-Length")
		return
	}

	_, ok, err := s.cfg.Store.Stat(r.Context(), oid)
	if err != nil {
		slog.Error("Stat object", "oid", oid, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if ok {
		// Published objects are immutable; a re-upload is a no-op.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.cfg.Store.PutVerified(r.Context(), oid, r.ContentLength, r.Body); err != nil {
		var verifyErr *VerifyError
		if errors.As(err, &verifyErr) {
			writeError(w, r, http.StatusBadRequest, verifyErr.Reason)
			return
		}
		slog.Error("Store object", "oid", oid, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// ------ Wire format helpers ------

type requestObject struct {
	oid  string
	size int64
}

// decodeLegacyRequest parses the legacy {oid, size} body. Both fields are
// required; unknown fields are ignored.
func decodeLegacyRequest(body io.Reader) (string, int64, error) {
	var req legacyRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return "", 0, fmt.Errorf("decode legacy request: %w", err)
	}

	if req.OID == nil || req.Size == nil {
		return "", 0, errors.New("missing oid or size")
	}
	if !IsValidOID(*req.OID) {
		return "", 0, fmt.Errorf("invalid oid: %q", *req.OID)
	}
	if *req.Size < 0 {
		return "", 0, fmt.Errorf("invalid size: %d", *req.Size)
	}

	return *req.OID, *req.Size, nil
}

// decodeBatchRequest parses a batch body and checks the operation. The object
// list is handed back raw so the caller can act on the operation first.
func decodeBatchRequest(body io.Reader) (string, *[]batchObject, error) {
	var req batchRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return "", nil, fmt.Errorf("decode batch request: %w", err)
	}

	if req.Operation == nil {
		return "", nil, errors.New("missing operation")
	}

	operation := *req.Operation
	if operation != "download" && operation != "upload" {
		return "", nil, fmt.Errorf("unknown operation: %q", operation)
	}

	return operation, req.Objects, nil
}

// validateBatchObjects checks every entry. A single structurally invalid
// object invalidates the whole request.
func validateBatchObjects(raw *[]batchObject) ([]requestObject, error) {
	if raw == nil {
		return nil, errors.New("missing objects")
	}

	objects := make([]requestObject, 0, len(*raw))
	for _, obj := range *raw {
		if obj.OID == nil || obj.Size == nil {
			return nil, errors.New("object missing oid or size")
		}
		if !IsValidOID(*obj.OID) {
			return nil, fmt.Errorf("invalid oid: %q", *obj.OID)
		}
		if *obj.Size < 0 {
			return nil, fmt.Errorf("invalid size: %d", *obj.Size)
		}
		objects = append(objects, requestObject{oid: *obj.OID, size: *obj.Size})
	}

	return objects, nil
}

// ------ Response helpers ------

// linkBase returns the scheme://host prefix for links embedded in responses,
// from PublicURL when configured and otherwise from the request itself.
func (s *Server) linkBase(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func objectURL(base string, oid string) string {
	return base + "/objects/" + oid
}

func downloadURL(base string, oid string) string {
	return base + "/data/objects/" + oid
}

// writeJSON writes an LFS JSON response. HEAD requests get the status and
// headers only.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response JSON", "err", err)
	}
}

// writeError writes the flat {message} error body and records the message on
// the response wrapper so the request log line carries it.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wrapper, ok := w.(*ResponseWriterWrapper); ok {
		wrapper.ErrorMessage = message
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}

	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message}); err != nil {
		slog.Error("Encode error JSON", "err", err)
	}
}
