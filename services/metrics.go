package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostel_occupancy_ledger_operations_total",
		Help: "Occupancy ledger operations by operation and result.",
	}, []string{"operation", "result"})

	ledgerCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostel_occupancy_reconcile_corrections_total",
		Help: "Rooms whose occupied counter was corrected by reconciliation.",
	})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostel_events_published_total",
		Help: "Domain events handed to the broker by queue and result.",
	}, []string{"queue", "result"})
)

func observeLedger(operation string, err error) {
	ledgerOperations.WithLabelValues(operation, ledgerResult(err)).Inc()
}

func ledgerResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrRoomNotEmpty):
		return "room_not_empty"
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case KindNotFound:
			return "not_found"
		case KindConflict:
			return "conflict"
		case KindValidation:
			return "invalid"
		}
	}
	return "error"
}
