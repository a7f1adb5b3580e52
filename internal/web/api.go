package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"missiontl/internal/band"
	"missiontl/internal/events"
	"missiontl/internal/model"
	"missiontl/internal/timeline"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tl.Describe())
}

// viewRequest holds exactly one view operation.
//
//	{"start": 0, "end": 3600}
//	{"pan": -600}
//	{"zoom": 0.5, "centre": 1800}
//	{"reset": true}
type viewRequest struct {
	Start  *int64   `json:"start"`
	End    *int64   `json:"end"`
	Pan    *int64   `json:"pan"`
	Zoom   *float64 `json:"zoom"`
	Centre *int64   `json:"centre"`
	Reset  bool     `json:"reset"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var err error
	switch {
	case req.Reset:
		s.tl.ResetView()
	case req.Start != nil && req.End != nil:
		err = s.tl.SetView(*req.Start, *req.End)
	case req.Pan != nil:
		err = s.tl.Pan(*req.Pan)
	case req.Zoom != nil:
		centre := req.Centre
		if centre == nil {
			start, end := s.tl.View()
			mid := start + (end-start)/2
			centre = &mid
		}
		err = s.tl.Zoom(*req.Zoom, *centre)
	default:
		writeError(w, http.StatusBadRequest, "expected start+end, pan, zoom or reset")
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	start, end := s.tl.View()
	writeJSON(w, http.StatusOK, timeline.Window{Start: start, End: end})
}

type pointerEvent struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button,omitempty"`
}

type pointerRequest struct {
	Events []pointerEvent `json:"events"`
}

type pointerResponse struct {
	Events  []events.Event   `json:"events"`
	Tooltip timeline.Tooltip `json:"tooltip"`
	View    timeline.Window  `json:"view"`
	Drag    *timeline.Drag   `json:"drag,omitempty"`
}

// handlePointer replays page pointer events in order.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ps := make([]timeline.Pointer, 0, len(req.Events))
	for i, e := range req.Events {
		kind, ok := band.ParsePointerKind(e.Kind)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("events[%d]: unknown kind %q", i, e.Kind))
			return
		}
		ps = append(ps, timeline.Pointer{Kind: kind, X: e.X, Y: e.Y, Button: band.Button(e.Button)})
	}

	resp := pointerResponse{Events: []events.Event{}}
	for _, p := range ps {
		resp.Events = append(resp.Events, s.tl.Pointer(p)...)
	}
	resp.Tooltip = s.tl.Tooltip()
	start, end := s.tl.View()
	resp.View = timeline.Window{Start: start, End: end}
	resp.Drag = s.tl.DragState()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Action {
	case "show", "hide", "toggle":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}
	if err := s.tl.Children(r.PathValue("id"), req.Action); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tl.Layout())
}

type overlaysRequest struct {
	Background []*model.DrawableInterval `json:"background"`
	Foreground []*model.DrawableInterval `json:"foreground"`
}

// handleOverlays replaces a band's background and foreground intervals.
func (s *Server) handleOverlays(w http.ResponseWriter, r *http.Request) {
	var req overlaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.tl.SetOverlays(r.PathValue("id"), req.Background, req.Foreground); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Refresh == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}
	if err := s.opts.Refresh.RunOnce(r.Context()); err != nil {
		// Partial loads are applied; report the failure with the status.
		writeJSON(w, http.StatusBadGateway, s.opts.Refresh.Status())
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Refresh.Status())
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Refresh == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Refresh.Status())
}
