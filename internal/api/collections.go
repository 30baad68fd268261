package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/iconstore"
	"github.com/JakeFAU/iconsync/internal/icons"
	"github.com/JakeFAU/iconsync/internal/initializer"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/svg"
)

const (
	blobTimeout   = 3 * time.Second
	maxSubsetSize = 500
)

// BlobSource returns serialized artifacts by prefix.
type BlobSource interface {
	Get(ctx context.Context, prefix string) ([]byte, error)
}

// CollectionHandler serves the indexed icon sets.
type CollectionHandler struct {
	index  *initializer.Index
	blobs  BlobSource
	info   config.ExportConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewCollectionHandler wires the index, the optional blob cache and the info
// block used for artifacts built on the fly.
func NewCollectionHandler(index *initializer.Index, blobs BlobSource, info config.ExportConfig, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{
		index:  index,
		blobs:  blobs,
		info:   info,
		now:    time.Now,
		logger: logging.OrNop(logger),
	}
}

type collectionDTO struct {
	Prefix  string `json:"prefix"`
	Total   int    `json:"total"`
	Aliases int    `json:"aliases"`
}

// List handles GET /v1/collections. It returns {"collections": [...]} or 503
// while the index is not ready.
func (h *CollectionHandler) List(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		writeError(w, http.StatusServiceUnavailable, "icon sets are not initialized")
		return
	}
	prefixes := h.index.Prefixes()
	out := make([]collectionDTO, 0, len(prefixes))
	for _, p := range prefixes {
		set, ok := h.index.Get(p)
		if !ok {
			continue
		}
		total := set.Count()
		out = append(out, collectionDTO{Prefix: p, Total: total, Aliases: set.Len() - total})
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": out})
}

// Get handles GET /v1/collections/{prefix}. The stored blob is served when
// present; otherwise the artifact is built from the index.
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if h.blobs != nil {
		ctx, cancel := context.WithTimeout(r.Context(), blobTimeout)
		defer cancel()
		data, err := h.blobs.Get(ctx, set.Prefix)
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(data); err != nil {
				h.logger.Warn("write artifact failed", zap.String("prefix", set.Prefix), zap.Error(err))
			}
			return
		case !errors.Is(err, iconstore.ErrNotFound):
			h.logger.Warn("storage cache read failed", zap.String("prefix", set.Prefix), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, h.build(set))
}

type subsetResponse struct {
	export.Artifact
	NotFound []string `json:"not_found,omitempty"`
}

// Subset handles GET /v1/collections/{prefix}/icons?icons=a,b. Aliases carry
// their parents along. Unknown names are listed in not_found.
func (h *CollectionHandler) Subset(w http.ResponseWriter, r *http.Request) {
	set, ok := h.lookup(w, r)
	if !ok {
		return
	}
	names := splitNames(r.URL.Query().Get("icons"))
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "icons parameter required")
		return
	}
	if len(names) > maxSubsetSize {
		writeError(w, http.StatusBadRequest, "too many icons requested")
		return
	}
	subset := icons.NewSet(set.Prefix)
	var missing []string
	for _, name := range names {
		if !copyEntry(subset, set, name, set.Len()) {
			missing = append(missing, name)
		}
	}
	writeJSON(w, http.StatusOK, subsetResponse{Artifact: h.build(subset), NotFound: missing})
}

// Icon handles GET /v1/collections/{prefix}/{name}.svg and renders one icon,
// following aliases.
func (h *CollectionHandler) Icon(w http.ResponseWriter, r *http.Request) {
	set, ok := h.lookup(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	icon, ok := set.Resolve(name)
	if !ok {
		writeError(w, http.StatusNotFound, "icon not found")
		return
	}
	doc, err := svg.New(icon.Body, icon.ViewBox())
	if err != nil {
		h.logger.Error("render icon failed", zap.String("icon", set.FullName(name)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render icon")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc.String())); err != nil {
		h.logger.Warn("write icon failed", zap.String("icon", set.FullName(name)), zap.Error(err))
	}
}

func (h *CollectionHandler) ready() bool {
	return h.index != nil && h.index.Ready()
}

func (h *CollectionHandler) lookup(w http.ResponseWriter, r *http.Request) (*icons.Set, bool) {
	if !h.ready() {
		writeError(w, http.StatusServiceUnavailable, "icon sets are not initialized")
		return nil, false
	}
	set, ok := h.index.Get(chi.URLParam(r, "prefix"))
	if !ok {
		writeError(w, http.StatusNotFound, "collection not found")
		return nil, false
	}
	return set, true
}

func (h *CollectionHandler) build(set *icons.Set) export.Artifact {
	return export.Build(set, export.NewInfo(h.info, set.Prefix, set.Count()), h.now())
}

// copyEntry copies name and, for aliases, its parent chain from src to dst.
func copyEntry(dst, src *icons.Set, name string, depth int) bool {
	if depth < 0 {
		return false
	}
	e, ok := src.Get(name)
	if !ok {
		return false
	}
	if e.Kind == icons.KindIcon {
		dst.SetIcon(name, e.Icon)
		return true
	}
	if !copyEntry(dst, src, e.Parent, depth-1) {
		return false
	}
	return dst.SetAlias(name, e.Parent) == nil
}

func splitNames(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
