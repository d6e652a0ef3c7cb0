package domain

import "errors"

// ErrStateNotFound is returned when a call ID has no stored state.
var ErrStateNotFound = errors.New("call state not found")

// ErrWebhookNotConfigured is returned when execution is attempted without a
// configured webhook destination.
var ErrWebhookNotConfigured = errors.New("webhook URL not configured")

// ErrAppointmentNotFound is returned by the storage collaborator when an
// appointment ID is unknown.
var ErrAppointmentNotFound = errors.New("appointment not found")
