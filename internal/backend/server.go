/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the publish server for compositions and its HTTP client.
// Compositions are posted as the interchange array, validated with the same
// codec the editor uses, and stored in Postgres.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"zonecanvas/internal/codec"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/version"
)

// MaxBodyBytes caps the size of a published composition.
const MaxBodyBytes = 4 << 20

// Config holds server configuration.
type Config struct {
	Addr   string // http bind address, e.g., ":8080"
	Secret string // HMAC secret for bearer tokens
	Policy codec.Policy
	Now    func() time.Time
}

// Server serves the publish API over a Repository.
type Server struct {
	cfg  Config
	repo Repository
	log  *slog.Logger
	mux  *http.ServeMux
}

// NewServer wires routes over repo.
func NewServer(cfg Config, repo Repository) (*Server, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{cfg: cfg, repo: repo, log: applog.WithComponent("backend"), mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.repo.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})
	s.mux.HandleFunc("POST /api/compositions", withAuth(s.cfg.Secret, s.cfg.Now, s.create))
	s.mux.HandleFunc("GET /api/compositions", withAuth(s.cfg.Secret, s.cfg.Now, s.list))
	s.mux.HandleFunc("GET /api/compositions/{id}", withAuth(s.cfg.Secret, s.cfg.Now, s.get))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, sub string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > MaxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("composition exceeds %d bytes", MaxBodyBytes))
		return
	}
	els, err := codec.Import(body, s.cfg.Policy)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	canonical, err := codec.Export(els)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	c := Composition{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(r.URL.Query().Get("name")),
		Subject:   sub,
		Elements:  len(els),
		CreatedAt: s.cfg.Now().UTC(),
	}
	if err := s.repo.Create(r.Context(), c, canonical); err != nil {
		s.log.Error("store composition failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, errors.New("store failed"))
		return
	}
	s.log.Info("composition published", slog.String("id", c.ID.String()), slog.Int("elements", c.Elements), slog.String("subject", sub))
	w.Header().Set("Location", "/api/compositions/"+c.ID.String())
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, _ string) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = min(n, 500)
	}
	list, err := s.repo.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// get returns the stored interchange array itself so it can be imported as is.
func (s *Server) get(w http.ResponseWriter, r *http.Request, _ string) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid composition id"))
		return
	}
	c, payload, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Composition-Name", c.Name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("publish server listening", slog.String("addr", s.cfg.Addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		return nil
	}
}
