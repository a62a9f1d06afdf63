package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safs_auth_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safs_auth_registrations_total",
			Help: "Self-registration attempts by result",
		},
		[]string{"result"},
	)
	adminBootstrapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safs_admin_bootstrap_total",
			Help: "Default admin bootstrap runs by outcome",
		},
		[]string{"outcome"},
	)
	adminCustomerActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safs_admin_customer_actions_total",
			Help: "Admin customer management operations by action",
		},
		[]string{"action"},
	)
)
