package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"missiontl/internal/cache"
	"missiontl/internal/convert"
	appLog "missiontl/internal/log"
)

const renderTTL = 10 * time.Minute

// rendered returns the page in format for the current view and data
// generation, from the cache when possible.
func (s *Server) rendered(ctx context.Context, format string, render func(io.Writer) error) ([]byte, error) {
	start, end := s.tl.View()
	key := cache.RenderKey(format, start, end, s.tl.Generation())
	if s.opts.Cache != nil {
		body, err := s.opts.Cache.Get(ctx, key)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			appLog.Error("render cache get failed", err, "key", key)
		}
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Set(ctx, key, buf.Bytes(), renderTTL); err != nil {
			appLog.Error("render cache set failed", err, "key", key)
		}
	}
	return buf.Bytes(), nil
}

func (s *Server) renderHandler(format, contentType string, render func(io.Writer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.rendered(r.Context(), format, render)
		if err != nil {
			appLog.Error("render failed", err, "format", format)
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}
}

// writePlanes packs the raster render into black/red e-paper planes.
func (s *Server) writePlanes(w io.Writer) error {
	p, err := convert.PackPlanes(s.tl.RenderImage())
	if err != nil {
		return err
	}
	_, err = p.WriteTo(w)
	return err
}
