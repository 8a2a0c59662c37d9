package staffing

import "errors"

// ErrUnknownTask is returned when a quote names a task with no rate.
var ErrUnknownTask = errors.New("unknown task")
