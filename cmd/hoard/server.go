package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/oda/hoard/pile"
	"github.com/oda/hoard/word"
)

// Server serves a read-only JSON view of a pile. Each request sees a
// snapshot of the file as it was when the request arrived.
type Server struct {
	path string
	opts []pile.Option
	log  logrus.FieldLogger
	reg  *prometheus.Registry

	mu   sync.Mutex
	snap *pile.Snapshot
}

// Response is a generic JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusResponse describes the pile.
type StatusResponse struct {
	Path    string        `json:"path"`
	Version uint8         `json:"version"`
	Size    int           `json:"size"`
	Words   uint64        `json:"words"`
	Tip     *RootResponse `json:"tip,omitempty"`
}

// RootResponse is one committed root.
type RootResponse struct {
	Mark  uint64 `json:"mark"`
	Frame uint64 `json:"frame"`
	Value uint64 `json:"value"`
	Meta  uint64 `json:"meta"`
}

// FrameResponse is one frame.
type FrameResponse struct {
	Offset  uint64 `json:"offset"`
	Kind    string `json:"kind"`
	Length  uint32 `json:"length"`
	Padding uint64 `json:"padding"`
}

// BlobResponse carries a blob's payload, base64 encoded.
type BlobResponse struct {
	Offset uint64 `json:"offset"`
	Length int    `json:"length"`
	Data   []byte `json:"data"`
}

func newRootResponse(r pile.Root) *RootResponse {
	return &RootResponse{Mark: r.Mark, Frame: r.Frame.Get(), Value: r.Value.Get(), Meta: r.Meta}
}

func NewServer(path string, reg *prometheus.Registry, log logrus.FieldLogger, opts ...pile.Option) *Server {
	return &Server{path: path, opts: opts, log: log, reg: reg}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	corsHandler := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			if r.Method != http.MethodGet {
				writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
				return
			}

			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", corsHandler(s.handleStatus))
	mux.HandleFunc("/api/roots", corsHandler(s.handleRoots))
	mux.HandleFunc("/api/frames", corsHandler(s.handleFrames))
	mux.HandleFunc("/api/blob", corsHandler(s.handleBlob))
	if s.reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	}
	return mux
}

// Close releases the cached snapshot.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	err := s.snap.Release()
	s.snap = nil
	return err
}

// snapshot returns a handle to a snapshot covering the whole file,
// remapping only when the file has grown.
func (s *Server) snapshot() (*pile.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "stat pile")
	}
	size := info.Size() - info.Size()%word.Size
	if s.snap == nil || int64(s.snap.Len()) != size {
		snap, err := pile.ReadSnapshot(s.path, s.opts...)
		if err != nil {
			return nil, err
		}
		if s.snap != nil {
			s.snap.Release()
		}
		s.snap = snap
		s.log.WithField("size", size).Debug("remapped pile")
	}
	return s.snap.Clone(), nil
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func parseLimit(r *http.Request) (int, error) {
	str := r.URL.Query().Get("limit")
	if str == "" {
		return 0, nil
	}
	return strconv.Atoi(str)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to map pile: %v", err)})
		return
	}
	defer snap.Release()

	hdr, err := snap.Header()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to read header: %v", err)})
		return
	}
	status := StatusResponse{
		Path:    s.path,
		Version: hdr.Version,
		Size:    snap.Len(),
		Words:   snap.Words(),
	}
	tip, err := snap.Tip()
	switch {
	case err == nil:
		status.Tip = newRootResponse(tip)
	case !errors.Is(err, pile.ErrNoRoot):
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to find tip: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: status})
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid limit format"})
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to map pile: %v", err)})
		return
	}
	defer snap.Release()

	roots := []*RootResponse{}
	err = snap.Roots(func(root pile.Root) bool {
		roots = append(roots, newRootResponse(root))
		return limit <= 0 || len(roots) < limit
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to scan roots: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: roots})
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid limit format"})
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to map pile: %v", err)})
		return
	}
	defer snap.Release()

	frames := []FrameResponse{}
	err = snap.Frames(func(fi pile.FrameInfo) bool {
		frames = append(frames, FrameResponse{
			Offset:  fi.Offset.Get(),
			Kind:    fi.Kind.String(),
			Length:  fi.Length,
			Padding: fi.Padding,
		})
		return limit <= 0 || len(frames) < limit
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to walk frames: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: frames})
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to map pile: %v", err)})
		return
	}
	defer snap.Release()

	var o pile.Offset
	if str := r.URL.Query().Get("offset"); str != "" {
		n, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "invalid offset format"})
			return
		}
		if o, err = snap.Offset(n); err != nil {
			writeJSON(w, http.StatusNotFound, Response{Error: err.Error()})
			return
		}
	} else {
		tip, err := snap.Tip()
		if err != nil {
			writeJSON(w, http.StatusNotFound, Response{Error: err.Error()})
			return
		}
		o = tip.Value
	}

	data, err := snap.ReadBlob(o)
	switch {
	case errors.Is(err, pile.ErrOutOfRange), errors.Is(err, pile.ErrBadFrame):
		writeJSON(w, http.StatusNotFound, Response{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	// data aliases the mapping, which is released when we return.
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    BlobResponse{Offset: o.Get(), Length: len(data), Data: append([]byte(nil), data...)},
	})
}

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "serve a read-only JSON view of a pile",
		ArgsUsage: "PILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "address to listen on",
				EnvVars: []string{"HOARD_LISTEN"},
			},
		},
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			listen := a.cfg.Listen
			if c.IsSet("listen") {
				listen = c.String("listen")
			}

			server := NewServer(path, a.reg, a.log, a.options()...)
			defer server.Close()
			srv := &http.Server{
				Addr:              listen,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("listen", listen).Info("hoard API server starting")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
