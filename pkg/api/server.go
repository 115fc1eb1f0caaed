package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/aggregator"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/codec"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/coverage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/locations"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/storage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// Jobs is the subset of the aggregator the server triggers
type Jobs interface {
	Refresh(ctx context.Context, dir string) (*types.JobResult, error)
	Offload(ctx context.Context, force bool) (*types.JobResult, error)
	LastResult() *types.JobResult
}

// cacheReporter is implemented by archives that keep a tag block cache
type cacheReporter interface {
	CacheStats() storage.CacheStats
}

// Server implements the admin HTTP API server
type Server struct {
	archive storage.Archive
	jobs    Jobs
	rawDir  string
	addr    string
	server  *http.Server
	logger  *log.Logger
}

// NewServer creates a new API server. jobs may be nil for a read-only server.
func NewServer(addr string, archive storage.Archive, jobs Jobs, rawDir string) *Server {
	return &Server{
		archive: archive,
		jobs:    jobs,
		rawDir:  rawDir,
		addr:    addr,
		logger:  log.Default(),
	}
}

// SetLogger replaces the request error logger
func (s *Server) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Registered on the root router: only there does a wrong method answer 405
	const api = "/api/v1"
	router.HandleFunc(api+"/archive", s.handleArchive).Methods("GET")
	router.HandleFunc(api+"/archive/tags/{tag}", s.handleTag).Methods("GET")
	router.HandleFunc(api+"/coverage/{date:[0-9]{8}}", s.handleCoverage).Methods("GET")
	router.HandleFunc(api+"/status", s.handleStatus).Methods("GET")
	router.HandleFunc(api+"/jobs/refresh", s.handleRefresh).Methods("POST")
	router.HandleFunc(api+"/jobs/offload", s.handleOffload).Methods("POST")

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type archiveResponse struct {
	Exists   bool     `json:"exists"`
	Coverage string   `json:"coverage"`
	Tags     []string `json:"tags"`
}

type bucketResponse struct {
	Timestamp string            `json:"timestamp"`
	Data      string            `json:"data"`
	Readings  []readingResponse `json:"readings,omitempty"`
}

type readingResponse struct {
	Location   string  `json:"location"`
	Southbound int     `json:"southbound"`
	Northbound int     `json:"northbound"`
	SBAverage  float64 `json:"sb_average"`
	NBAverage  float64 `json:"nb_average"`
}

type tagResponse struct {
	Tag     string           `json:"tag"`
	Buckets []bucketResponse `json:"buckets"`
}

type statusResponse struct {
	LastJob *types.JobResult    `json:"last_job"`
	Cache   *storage.CacheStats `json:"cache,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleArchive reports the archive header
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if !s.archive.Exists() {
		writeJSON(w, http.StatusOK, archiveResponse{Tags: []string{}})
		return
	}

	header, err := s.archive.Info(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse{
		Exists:   true,
		Coverage: header.Coverage,
		Tags:     header.Tags,
	})
}

// handleTag returns one tag block; ?decode=true expands each bucket
func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	decode, _ := strconv.ParseBool(r.URL.Query().Get("decode"))

	rec, err := s.archive.LoadTag(r.Context(), tag)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := tagResponse{Tag: rec.Tag, Buckets: make([]bucketResponse, 0, len(rec.Buckets))}
	for _, b := range rec.Buckets {
		br := bucketResponse{Timestamp: b.Timestamp, Data: b.Data}
		if decode {
			br.Readings = expand(codec.Decode(b.Data))
		}
		resp.Buckets = append(resp.Buckets, br)
	}
	writeJSON(w, http.StatusOK, resp)
}

func expand(decoded string) []readingResponse {
	readings := codec.Readings(decoded)
	out := make([]readingResponse, 0, len(readings))
	for _, rd := range readings {
		name, _ := locations.Name(rd.Location)
		sb, nb := codec.ReadingAverages(rd)
		out = append(out, readingResponse{
			Location:   name,
			Southbound: rd.Southbound,
			Northbound: rd.Northbound,
			SBAverage:  sb,
			NBAverage:  nb,
		})
	}
	return out
}

// handleCoverage reports whether the archive already covers a date
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	var cov string
	if s.archive.Exists() {
		header, err := s.archive.Info(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		cov = header.Coverage
	}

	filter, err := coverage.NewFilter(cov)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date,
		"covered": filter.Covers(date),
	})
}

// handleStatus reports the last job and cache statistics
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	if s.jobs != nil {
		resp.LastJob = s.jobs.LastResult()
	}
	if c, ok := s.archive.(cacheReporter); ok {
		stats := c.CacheStats()
		resp.Cache = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		http.Error(w, "jobs disabled", http.StatusServiceUnavailable)
		return
	}

	res, err := s.jobs.Refresh(r.Context(), s.rawDir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOffload(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		http.Error(w, "jobs disabled", http.StatusServiceUnavailable)
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	res, err := s.jobs.Offload(r.Context(), force)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps typed errors onto status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrMalformed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, aggregator.ErrTooFewRecords):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("api: request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{
		"error": fmt.Sprint(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
