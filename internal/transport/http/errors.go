package http

import (
	"context"
	"errors"
	"net/http"

	apierrors "liciel/internal/errors"
	"liciel/internal/exporter"
	"liciel/internal/payload"
	"liciel/internal/scanner"
	"liciel/internal/services"
)

var (
	errNoScan = apierrors.New(http.StatusNotFound, "NO_SCAN", "No scan has completed yet")
	errNoRows = apierrors.New(http.StatusUnprocessableEntity, "NO_ROWS", "The selection holds no synthesis row")

	errNoMissions        = apierrors.New(http.StatusUnprocessableEntity, "NO_MISSIONS", "No LICIEL mission found below the root")
	errExportUnavailable = apierrors.New(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export format is not available on this server")
)

// mapError translates service and store sentinels into API errors.
// Unknown errors pass through and end up as 500s.
func mapError(err error) error {
	switch {
	case errors.Is(err, services.ErrScanRunning):
		return apierrors.ErrScanRunning
	case errors.Is(err, services.ErrNoScan):
		return errNoScan
	case errors.Is(err, services.ErrMissionNotFound):
		return apierrors.ErrMissionNotFound
	case errors.Is(err, scanner.ErrNoMissions):
		return errNoMissions
	case errors.Is(err, payload.ErrNotFound):
		return apierrors.ErrPayloadNotFound
	case errors.Is(err, payload.ErrExpired):
		return apierrors.ErrPayloadExpired
	case errors.Is(err, payload.ErrCorrupt):
		return apierrors.ErrPayloadCorrupt
	case errors.Is(err, payload.ErrNoRows):
		return errNoRows
	case errors.Is(err, exporter.ErrUnavailable):
		return errExportUnavailable
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.InvalidRequestWithError(err)
	}
	return err
}

// mapScanError is mapError for the scan endpoint: a root walk failure
// nothing else classifies is reported as SCAN_FAILED.
func mapScanError(err error) error {
	mapped := mapError(err)
	var (
		apiErr *apierrors.APIError
		appErr *apierrors.AppError
	)
	if errors.As(mapped, &apiErr) || errors.As(err, &appErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mapped
	}
	return apierrors.ScanFailedError(err)
}
