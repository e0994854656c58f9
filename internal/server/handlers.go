package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/dataset"
	"github.com/KaramelBytes/vizloom-cli/internal/markdown"
)

// readUpload loads the multipart "file" field as a dataset and returns its raw bytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return nil, nil, false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return nil, nil, false
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return nil, nil, false
	}
	ds, err := dataset.Load(hdr.Filename, bytes.NewReader(raw))
	if err != nil {
		s.Logger.Warn("load %s: %v", hdr.Filename, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	return ds, raw, true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ds, raw, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	summary := ds.Summarize()
	if store := s.Service.Store(); store != nil {
		js, err := summary.JSON()
		if err == nil {
			_, _, err = store.SaveBackup(ds.Name, raw, js)
		}
		if err != nil {
			s.Logger.Warn("backup %s: %v", ds.Name, err)
		}
	}

	desc, err := s.Service.Describe(r.Context(), ds)
	if err != nil {
		s.Logger.Error("describe %s: %v", ds.Name, err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     ds.Name,
		"preview":  ds.Preview(s.PreviewLines),
		"summary":  summary,
		"markdown": desc.Markdown,
		"html":     desc.HTML,
		"model":    desc.Model,
	})
}

type imageRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ds, _, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		writeError(w, http.StatusBadRequest, "missing question")
		return
	}
	out, err := s.Service.Chart(r.Context(), ds, question)
	if err != nil {
		s.Logger.Error("chart %s: %v", ds.Name, err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	images := []imageRef{}
	if out.Record != nil {
		images = append(images, imageRef{Name: out.Record.Name, URL: archive.ImageURL(out.Record.Name, out.Record.Day)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":   out.Code,
		"model":  out.Model,
		"config": out.Config,
		"images": images,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Markdown string `json:"markdown"`
		Engine   string `json:"engine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	html, err := markdown.RenderWith(req.Engine, req.Markdown)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": html})
}

func (s *Server) handleListArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := s.Service.Store()
	if store == nil {
		writeJSON(w, http.StatusOK, []archive.Day{})
		return
	}
	days, err := store.List(r.Context())
	if err != nil {
		s.Logger.Error("list archive: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if days == nil {
		days = []archive.Day{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := s.Service.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	name := r.URL.Query().Get("path")
	f, err := store.Open(r.Context(), name, r.URL.Query().Get("date"))
	if err != nil {
		if !errors.Is(err, archive.ErrNotFound) && !errors.Is(err, archive.ErrInvalidName) {
			s.Logger.Error("open image %q: %v", name, err)
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
