package planner

import "errors"

// ErrUnknownBuilding is returned when a check-in names a building that
// is not in the worker's assignment list.
var ErrUnknownBuilding = errors.New("unknown building")
