package service

import "errors"

// Sentinel kinds for controller errors.
var (
	ErrNoStore         = errors.New("no document store configured")
	ErrUnknownEmployee = errors.New("employee not found")
	ErrInvalidLimit    = errors.New("invalid leaderboard limit")
)
