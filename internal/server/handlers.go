// Package server exposes a playing scene over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/basemap"
	"github.com/woozymasta/geoview/internal/export"
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/scene"
	"github.com/woozymasta/geoview/internal/transition"
	"github.com/woozymasta/geoview/internal/viewport"
)

const etagCap = 64

// Routes registers the handlers on mux.
func (s *ServerContext) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/frame", s.HandleFrame)
	mux.HandleFunc("GET /api/frame.geojson", s.HandleFrameGeoJSON)
	mux.HandleFunc("GET /api/viewport", s.HandleViewport)
	mux.HandleFunc("GET /api/markers/{name}", s.HandleMarker)
	mux.HandleFunc("POST /api/markers/{name}", s.HandleMarkerMove)
	mux.HandleFunc("POST /api/camera", s.HandleCamera)
	mux.HandleFunc("POST /api/zoom", s.HandleZoom)
	mux.HandleFunc("GET /api/snapshot.webp", s.HandleSnapshotWebP)
	mux.HandleFunc("GET /api/snapshot.svg", s.HandleSnapshotSVG)
	mux.HandleFunc("GET /api/tracks.kml", s.HandleTracksKML)
	mux.HandleFunc("GET /api/tracks.geojson", s.HandleTracksGeoJSON)
	mux.HandleFunc("GET /tiles/{z}/{x}/{y}", s.HandleTile)
}

// TransitionRequest is the JSON form of a transition spec. Duration is a Go
// duration string.
type TransitionRequest struct {
	Params   map[string]float64 `json:"params,omitempty"`
	Duration string             `json:"duration,omitempty"`
	Method   string             `json:"method,omitempty"`
	Curve    string             `json:"curve,omitempty"`
	Speed    float64            `json:"speed,omitempty"`
}

// Spec converts the request, nil meaning an immediate jump.
func (t *TransitionRequest) Spec() (*transition.Spec, error) {
	if t == nil {
		return nil, nil
	}

	spec := &transition.Spec{
		Params: t.Params,
		Method: t.Method,
		Curve:  t.Curve,
		Speed:  t.Speed,
	}
	if t.Duration != "" {
		d, err := time.ParseDuration(t.Duration)
		if err != nil {
			return nil, fmt.Errorf("transition duration: %w", err)
		}
		spec.Duration = d
	}
	if t.Method != "" {
		if _, err := transition.Lookup(t.Method); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// MoveRequest moves a marker or the camera.
type MoveRequest struct {
	Position      *geo.Position      `json:"position,omitempty"`
	RotateTowards *geo.Position      `json:"rotate_towards,omitempty"`
	Transition    *TransitionRequest `json:"transition,omitempty"`
}

// FrameResponse is the body of /api/frame.
type FrameResponse struct {
	Frames  []scene.Frame `json:"frames"`
	Elapsed float64       `json:"elapsed"`
}

// MarkerResponse describes a marker.
type MarkerResponse struct {
	Position      *geo.Position `json:"position,omitempty"`
	Final         *geo.Position `json:"final,omitempty"`
	RotateTowards *geo.Position `json:"rotate_towards,omitempty"`
	Name          string        `json:"name"`
	Leg           int           `json:"leg"`
	Laps          int           `json:"laps"`
	Active        bool          `json:"active"`
}

// ViewportResponse describes the map viewport.
type ViewportResponse struct {
	Center *geo.Position  `json:"center,omitempty"`
	Final  *geo.Position  `json:"final,omitempty"`
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	State  string         `json:"state"`
	Cache  viewport.Cache `json:"cache"`
	Active bool           `json:"active"`
}

// HandleFrame renders a frame and serves the marker render specs.
func (s *ServerContext) HandleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := FrameResponse{Frames: s.Scene.Frame(), Elapsed: s.Scene.Elapsed().Seconds()}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// HandleFrameGeoJSON renders a frame and serves the marker positions.
func (s *ServerContext) HandleFrameGeoJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	frames := s.Scene.Frame()
	s.mu.Unlock()

	data, err := export.FramesGeoJSON(frames)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// HandleViewport serves the viewport state and projection cache.
func (s *ServerContext) HandleViewport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	vp := s.Scene.Viewport()
	resp := ViewportResponse{
		ID:     vp.ID(),
		Type:   vp.Type().String(),
		State:  vp.State().String(),
		Cache:  vp.Cache(),
		Active: vp.IsActive(),
	}
	if p, ok := vp.Position(); ok {
		resp.Center = &p
	}
	if p, ok := vp.FinalPosition(); ok {
		resp.Final = &p
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// HandleMarker serves the state of a marker.
func (s *ServerContext) HandleMarker(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.Scene.Marker(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, describeMarker(m))
}

// HandleMarkerMove queues a position or rotation transition on a marker.
func (s *ServerContext) HandleMarkerMove(w http.ResponseWriter, r *http.Request) {
	req, spec, ok := decodeMove(w, r)
	if !ok {
		return
	}
	if req.Position == nil && req.RotateTowards == nil {
		writeError(w, http.StatusBadRequest, errors.New("position or rotate_towards required"))
		return
	}

	name := r.PathValue("name")

	s.mu.Lock()
	defer s.mu.Unlock()

	m, found := s.Scene.Marker(name)
	if !found {
		http.NotFound(w, r)
		return
	}

	if req.Position != nil {
		target := *req.Position
		m.SetPosition(target, spec, func() {
			log.Debug().Str("marker", name).Float64("lat", target.Lat).Float64("lng", target.Lng).Msg("Marker arrived")
		})
	}
	if req.RotateTowards != nil {
		m.RotateTowards(*req.RotateTowards, spec, nil)
	}

	log.Info().Str("marker", name).Msg("Marker transition queued")
	writeJSON(w, http.StatusAccepted, describeMarker(m))
}

// HandleCamera queues a center transition on the viewport.
func (s *ServerContext) HandleCamera(w http.ResponseWriter, r *http.Request) {
	req, spec, ok := decodeMove(w, r)
	if !ok {
		return
	}
	if req.Position == nil {
		writeError(w, http.StatusBadRequest, errors.New("position required"))
		return
	}

	s.mu.Lock()
	s.Scene.Viewport().SetPosition(*req.Position, spec, nil)
	s.mu.Unlock()

	log.Info().Float64("lat", req.Position.Lat).Float64("lng", req.Position.Lng).Msg("Camera transition queued")
	w.WriteHeader(http.StatusAccepted)
}

// HandleZoom changes the zoom of the map widget, like a user would.
func (s *ServerContext) HandleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom *float64 `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Zoom == nil {
		writeError(w, http.StatusBadRequest, errors.New("zoom required"))
		return
	}

	s.mu.Lock()
	err := s.Scene.Viewport().SetZoom(*req.Zoom)
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleSnapshotWebP renders the current frame as WebP, over the basemap
// when one is configured.
func (s *ServerContext) HandleSnapshotWebP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	frames := s.Scene.Frame()
	cache := s.Scene.Viewport().Cache()
	s.mu.Unlock()

	if !cache.Valid {
		writeError(w, http.StatusServiceUnavailable, viewport.ErrNotReady)
		return
	}

	size := image.Pt(int(math.Round(cache.Size.X)), int(math.Round(cache.Size.Y)))
	var base image.Image
	if s.Basemap != nil {
		canvas := image.NewRGBA(image.Rectangle{Max: size})
		if err := s.Basemap.Draw(r.Context(), canvas, basemap.ViewOf(cache)); err != nil {
			log.Warn().Err(err).Msg("Failed to draw basemap")
		} else {
			base = canvas
		}
	}

	var buf bytes.Buffer
	if err := export.WriteWebP(&buf, export.RenderImage(frames, size, base), export.DefaultQuality); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// HandleSnapshotSVG renders the current frame as SVG.
func (s *ServerContext) HandleSnapshotSVG(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	frames := s.Scene.Frame()
	cache := s.Scene.Viewport().Cache()
	s.mu.Unlock()

	if !cache.Valid {
		writeError(w, http.StatusServiceUnavailable, viewport.ErrNotReady)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	size := image.Pt(int(math.Round(cache.Size.X)), int(math.Round(cache.Size.Y)))
	if err := export.WriteSVG(w, frames, size); err != nil {
		log.Error().Err(err).Msg("Failed to write svg snapshot")
	}
}

// HandleTracksKML serves the travelled marker paths as KML.
func (s *ServerContext) HandleTracksKML(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tracks := s.Scene.Tracks()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	if err := export.WriteKML(w, s.Name, tracks); err != nil {
		log.Error().Err(err).Msg("Failed to write kml tracks")
	}
}

// HandleTracksGeoJSON serves the travelled marker paths as GeoJSON.
func (s *ServerContext) HandleTracksGeoJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tracks := s.Scene.Tracks()
	s.mu.Unlock()

	data, err := export.TracksGeoJSON(tracks)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// HandleTile serves basemap tiles from the tile cache directory, a
// transparent tile when the tile was never fetched.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	if s.Basemap == nil || s.Basemap.CacheDir == "" {
		http.NotFound(w, r)
		return
	}

	// only numeric path parts, to prevent path probing
	z, x, y := r.PathValue("z"), r.PathValue("x"), r.PathValue("y")
	yNum := y
	if ext := filepath.Ext(y); ext == ".webp" {
		yNum = y[:len(y)-len(ext)]
	}
	for _, part := range []string{z, x, yNum} {
		if _, err := strconv.Atoi(part); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	path := filepath.Join(s.Basemap.CacheDir, z, x, yNum+".webp")
	if s.serveFile(w, r, path, "image/webp") {
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.TransparentTile)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

func describeMarker(m *scene.Marker) MarkerResponse {
	resp := MarkerResponse{Name: m.Name()}
	// reading the position may complete a leg and advance the route
	if p, ok := m.Position(); ok {
		resp.Position = &p
	}
	resp.Leg, resp.Laps, resp.Active = m.Leg(), m.Laps(), m.IsActive()
	if p, ok := m.FinalPosition(); ok {
		resp.Final = &p
	}
	if p, ok := m.CurrentRotateTowards(); ok {
		resp.RotateTowards = &p
	}
	return resp
}

func decodeMove(w http.ResponseWriter, r *http.Request) (MoveRequest, *transition.Spec, bool) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return req, nil, false
	}

	spec, err := req.Transition.Spec()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, nil, false
	}

	return req, spec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
