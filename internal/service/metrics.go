package service

import "github.com/prometheus/client_golang/prometheus"

var (
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "iam_login_total", Help: "Login attempts by result"},
		[]string{"result"},
	)
	otpVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "iam_otp_verify_total", Help: "OTP verifications by result"},
		[]string{"result"},
	)
	sessionEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "iam_session_evictions_total", Help: "Sessions removed by the device limit"},
	)
	permissionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "iam_permission_checks_total", Help: "user-can checks by outcome"},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(loginTotal, otpVerifyTotal, sessionEvictions, permissionChecks)
}
