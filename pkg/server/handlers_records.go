package server

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/types"
	"github.com/matst80/securityapp/pkg/view"
)

// GetRecords answers a single ordered and filtered view. Without a session
// the view is empty.
func (s *Server) GetRecords(w http.ResponseWriter, r *http.Request, session types.Session) error {
	query, err := decodeQuery[RecordsQuery](r.URL.Query())
	if err != nil {
		return badRequest(w, err)
	}
	ordering, err := types.ParseOrdering(query.Order)
	if err != nil {
		return badRequest(w, err)
	}
	return common.WriteJson(w, http.StatusOK, RecordsResponse{
		Order:   ordering,
		Filter:  query.Filter,
		Records: view.Filter(s.Records.FetchOrdering(r.Context(), session, ordering), query.Filter),
	})
}

func (s *Server) AddRecord(w http.ResponseWriter, r *http.Request, session types.Session) error {
	if !session.Authenticated() {
		return unauthorized(w)
	}
	req := AddRecordRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return badRequest(w, err)
	}
	record := types.Record{Label: req.Label, Timestamp: req.Timestamp}
	if !record.HasTimestamp() {
		record.Timestamp = s.now()
	}
	account, err := s.Records.AddRecord(r.Context(), session, record)
	if err != nil {
		return fail(w, err)
	}
	if s.Notifier != nil {
		if err := s.Notifier.NotifyLogin(r.Context(), account, record); err != nil {
			log.WithField("uid", session.UID).Printf("login notification failed: %v", err)
		}
	}
	return common.WriteJson(w, http.StatusCreated, record)
}
