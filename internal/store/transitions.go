package store

import "antrean/queue-service/internal/models"

// transitionMap is the closed set of legal status moves. Statuses missing
// from the map (done, skipped, released, reset, cancelled) are terminal and
// admit no transition at all.
var transitionMap = map[models.Status][]models.Status{
	models.StatusWaiting:    {models.StatusCalled, models.StatusProcessing, models.StatusReleased, models.StatusReset},
	models.StatusCalled:     {models.StatusDone, models.StatusSkipped, models.StatusReset},
	models.StatusProcessing: {models.StatusDone, models.StatusReset},
}

var allStatuses = []models.Status{
	models.StatusWaiting,
	models.StatusCalled,
	models.StatusProcessing,
	models.StatusDone,
	models.StatusSkipped,
	models.StatusReleased,
	models.StatusReset,
	models.StatusCancelled,
}

func CanTransition(from, to models.Status) bool {
	allowed, ok := transitionMap[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further transition.
func Terminal(status models.Status) bool {
	_, ok := transitionMap[status]
	return !ok && ValidStatus(status)
}

func ValidStatus(status models.Status) bool {
	for _, s := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ResetExempt lists the statuses a counter reset leaves untouched. Everything
// else (waiting, processing, called, and already-reset rows) is forced to
// reset. Note the exemption set is narrower than Terminal: reset rows are
// re-reset harmlessly so the bulk update stays a single predicate.
func ResetExempt() []models.Status {
	return []models.Status{
		models.StatusDone,
		models.StatusCancelled,
		models.StatusReleased,
		models.StatusSkipped,
	}
}
