// Package directrequest gates messaging between users who are not friends.
//
// All functions are pure: they take the current request state and the
// relationship between the two users and return the next state or a
// permission error. Persisting the result is the caller's job.
package directrequest

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
)

// Relation is the friend-graph view of the two participants.
type Relation struct {
	Friends    bool
	Blocked    bool // a block edge exists in either direction
	Restricted bool // a restriction edge exists in either direction
}

// Decision is the outcome of a permitted send.
type Decision struct {
	Next    model.DirectRequest
	Changed bool
}

// Initial returns the request state of a direct conversation created
// without a message.
func Initial(rel Relation) model.DirectRequest {
	if rel.Friends {
		return model.DirectRequest{Status: model.RequestStatusAccepted}
	}
	return model.DirectRequest{Status: model.RequestStatusNone}
}

// Normalize forces the request to accepted when the users are friends.
// Friendship always wins over a stale pending or rejected state.
func Normalize(req model.DirectRequest, rel Relation) (model.DirectRequest, bool) {
	if !rel.Friends || req.Status == model.RequestStatusAccepted {
		return req, false
	}
	req.Status = model.RequestStatusAccepted
	return req, true
}

// AuthorizeSend decides whether senderID may send to recipientID and
// returns the request state after the message is counted.
func AuthorizeSend(req model.DirectRequest, senderID, recipientID uuid.UUID, rel Relation) (Decision, error) {
	if rel.Blocked {
		return Decision{}, appErrors.ErrBlocked
	}
	if rel.Restricted {
		return Decision{}, appErrors.ErrRestricted
	}

	if next, changed := Normalize(req, rel); changed || rel.Friends {
		return Decision{Next: next, Changed: changed}, nil
	}

	switch req.Status {
	case model.RequestStatusAccepted:
		return Decision{Next: req}, nil

	case model.RequestStatusNone, "":
		requester, responder := senderID, recipientID
		return Decision{
			Next: model.DirectRequest{
				Status:                model.RequestStatusPending,
				RequesterID:           &requester,
				ResponderID:           &responder,
				RequesterMessageCount: 1,
			},
			Changed: true,
		}, nil

	case model.RequestStatusPending:
		if req.RequesterID == nil || *req.RequesterID != senderID {
			return Decision{}, appErrors.ErrMustAcceptFirst
		}
		if req.RequesterMessageCount >= model.RequestMessageCap {
			return Decision{}, appErrors.ErrRequestLimitReached
		}
		req.RequesterMessageCount++
		return Decision{Next: req, Changed: true}, nil

	case model.RequestStatusRejected:
		return Decision{}, appErrors.ErrRequestRejected
	}

	return Decision{}, appErrors.InvalidState(appErrors.ReasonNoPendingRequest, "unknown request status "+string(req.Status))
}

// Accept moves a pending request to accepted. Accepting twice is a no-op.
func Accept(req model.DirectRequest, callerID uuid.UUID, rel Relation, now time.Time) (model.DirectRequest, bool, error) {
	if req.Status == model.RequestStatusAccepted {
		return req, false, nil
	}
	if next, changed := Normalize(req, rel); changed {
		return stampResponse(next, callerID, now), true, nil
	}
	if req.Status != model.RequestStatusPending {
		return req, false, appErrors.ErrNoPendingRequest
	}
	if req.ResponderID == nil || *req.ResponderID != callerID {
		return req, false, appErrors.ErrNotResponder
	}
	req.Status = model.RequestStatusAccepted
	return stampResponse(req, callerID, now), true, nil
}

// CanReject checks that callerID may reject the request. Rejection itself
// deletes the conversation, so there is no next state to return.
func CanReject(req model.DirectRequest, callerID uuid.UUID, rel Relation) error {
	if rel.Friends || req.Status != model.RequestStatusPending {
		return appErrors.ErrNoPendingRequest
	}
	if req.ResponderID == nil || *req.ResponderID != callerID {
		return appErrors.ErrNotResponder
	}
	return nil
}

func stampResponse(req model.DirectRequest, callerID uuid.UUID, now time.Time) model.DirectRequest {
	by := callerID
	at := now
	req.RespondedAt = &at
	req.RespondedBy = &by
	return req
}
