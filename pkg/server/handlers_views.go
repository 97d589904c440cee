package server

import (
	"context"
	"net/http"
	"time"

	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/types"
	"github.com/matst80/securityapp/pkg/view"
)

const maxViewWait = 10 * time.Second

type ViewResponse struct {
	ID string `json:"id"`
	view.Snapshot
}

// waitIfAsked blocks until every view of the state is loaded when the
// request has ?wait=true, bounded by the request and maxViewWait.
func waitIfAsked(r *http.Request, state *view.State) {
	query, err := decodeQuery[ViewQuery](r.URL.Query())
	if err != nil || !query.Wait {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), maxViewWait)
	defer cancel()
	_ = state.WaitContext(ctx)
}

func writeView(w http.ResponseWriter, status int, id string, state *view.State) error {
	return common.WriteJson(w, status, ViewResponse{ID: id, Snapshot: state.Snapshot()})
}

func (s *Server) OpenView(w http.ResponseWriter, r *http.Request, session types.Session) error {
	if !session.Authenticated() {
		return unauthorized(w)
	}
	req := OpenViewRequest{}
	if err := s.decodeOptionalBody(w, r, &req); err != nil {
		return badRequest(w, err)
	}
	base, err := types.ParseOrdering(req.Base)
	if err != nil {
		return badRequest(w, err)
	}
	id, state := s.Views.Open(r.Context(), session)
	if err := state.SelectBase(base); err != nil {
		return badRequest(w, err)
	}
	state.SetFilter(req.Filter)
	waitIfAsked(r, state)
	return writeView(w, http.StatusCreated, id, state)
}

func (s *Server) GetView(w http.ResponseWriter, r *http.Request, session types.Session) error {
	id := r.PathValue("id")
	state, err := s.Views.Get(id, session)
	if err != nil {
		return fail(w, err)
	}
	waitIfAsked(r, state)
	return writeView(w, http.StatusOK, id, state)
}

func (s *Server) SelectBase(w http.ResponseWriter, r *http.Request, session types.Session) error {
	id := r.PathValue("id")
	state, err := s.Views.Get(id, session)
	if err != nil {
		return fail(w, err)
	}
	req := BaseRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return badRequest(w, err)
	}
	base, err := types.ParseOrdering(req.Base)
	if err != nil {
		return badRequest(w, err)
	}
	if err := state.SelectBase(base); err != nil {
		return badRequest(w, err)
	}
	return writeView(w, http.StatusOK, id, state)
}

func (s *Server) SetFilter(w http.ResponseWriter, r *http.Request, session types.Session) error {
	id := r.PathValue("id")
	state, err := s.Views.Get(id, session)
	if err != nil {
		return fail(w, err)
	}
	req := FilterRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return badRequest(w, err)
	}
	state.SetFilter(req.Filter)
	return writeView(w, http.StatusOK, id, state)
}

func (s *Server) CloseView(w http.ResponseWriter, r *http.Request, session types.Session) error {
	if err := s.Views.Close(r.PathValue("id"), session); err != nil {
		return fail(w, err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
