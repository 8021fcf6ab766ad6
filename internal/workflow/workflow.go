// Package workflow defines the legal status transitions of a reimbursement
// request's tracking record.
//
// Pending is the only initial state. Approved and Rejected are terminal: no
// transition leaves them, and nothing re-opens a terminal record.
package workflow

import (
	"strings"

	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
)

type edge struct {
	from model.TrackingStatus
	to   model.TrackingStatus
}

var transitions = map[edge]bool{
	{model.TrackingStatusPending, model.TrackingStatusVerified}:  true,
	{model.TrackingStatusPending, model.TrackingStatusApproved}:  true,
	{model.TrackingStatusPending, model.TrackingStatusRejected}:  true,
	{model.TrackingStatusVerified, model.TrackingStatusApproved}: true,
	{model.TrackingStatusVerified, model.TrackingStatusRejected}: true,
}

// Initial is the status every tracking record starts in.
const Initial = model.TrackingStatusPending

// Statuses lists every known status in workflow order.
func Statuses() []model.TrackingStatus {
	return []model.TrackingStatus{
		model.TrackingStatusPending,
		model.TrackingStatusVerified,
		model.TrackingStatusApproved,
		model.TrackingStatusRejected,
	}
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(s string) (model.TrackingStatus, error) {
	for _, st := range Statuses() {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", apperrors.ErrInvalidStatus.With("%q", s)
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.TrackingStatus) bool {
	return s == model.TrackingStatusApproved || s == model.TrackingStatusRejected
}

// CanTransition reports whether from -> to is an edge of the workflow.
func CanTransition(from, to model.TrackingStatus) bool {
	return transitions[edge{from, to}]
}

// Check returns ErrInvalidTransition when from -> to is not allowed.
func Check(from, to model.TrackingStatus) error {
	if !CanTransition(from, to) {
		return apperrors.ErrInvalidTransition.With("%s -> %s (allowed: %s)", from, to, describe(Next(from)))
	}
	return nil
}

// Next lists the statuses reachable from s in one step.
func Next(s model.TrackingStatus) []model.TrackingStatus {
	var out []model.TrackingStatus
	for _, to := range Statuses() {
		if CanTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}

func describe(statuses []model.TrackingStatus) string {
	if len(statuses) == 0 {
		return "none"
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
