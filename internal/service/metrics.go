package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	journeysCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journeys_created_total",
		Help: "Journeys accepted for generation.",
	})
	journeyCreationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_creations_rejected_total",
		Help: "Journey creation attempts rejected, by reason.",
	}, []string{"reason"})
	webhookCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generator_webhook_callbacks_total",
		Help: "Generator callbacks processed, by kind and outcome.",
	}, []string{"kind", "outcome"})
	journeyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_status_transitions_total",
		Help: "Journey status changes, by target status.",
	}, []string{"status"})
	daysCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journey_days_completed_total",
		Help: "Days marked completed for the first time.",
	})
	statsUpdateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "user_stats_update_failures_total",
		Help: "Stats updates that failed after a day completion.",
	})
)
