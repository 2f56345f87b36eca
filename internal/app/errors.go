package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBoutNotFound = errors.New("bout not found")
	ErrBoutFinished = errors.New("bout already finished")
	ErrBackpressure = errors.New("frame queue full")
)
