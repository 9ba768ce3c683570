package services

import "errors"

var (
	// ErrScanRunning is returned when a scan is requested while one runs.
	ErrScanRunning = errors.New("scan already running")
	// ErrNoScan is returned by mission queries before the first scan.
	ErrNoScan = errors.New("no scan has completed yet")
	// ErrMissionNotFound is returned for an unknown mission id.
	ErrMissionNotFound = errors.New("mission not found")
	// ErrInvalidInput is returned for requests the services reject.
	ErrInvalidInput = errors.New("invalid input")
)
