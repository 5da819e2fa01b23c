package lifecycle

import "errors"

// ErrMissingFeedback is returned when a transition into rejected is requested
// without feedback text. The caller should block the write and prompt for
// feedback.
var ErrMissingFeedback = errors.New("rejecting an item requires feedback")
