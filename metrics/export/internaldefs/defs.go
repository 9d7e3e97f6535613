package internaldefs

import (
	cloudhatch "github.com/IulianH/CloudHatch-sub000"
)

// CounterDef pairs an engine counter with its stable exported name. Both
// exporters read from this table so that Prometheus and OTel emit identical
// metric names.
type CounterDef struct {
	ID   cloudhatch.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: cloudhatch.MetricLoginSuccess, Name: "cloudhatch_login_success_total", Help: "Successful password logins."},
	{ID: cloudhatch.MetricLoginFailure, Name: "cloudhatch_login_failure_total", Help: "Failed login attempts."},
	{ID: cloudhatch.MetricLoginLocked, Name: "cloudhatch_login_locked_total", Help: "Logins refused because the account is locked."},
	{ID: cloudhatch.MetricFederatedLogin, Name: "cloudhatch_federated_login_total", Help: "Successful federated logins."},
	{ID: cloudhatch.MetricAccountLocked, Name: "cloudhatch_account_locked_total", Help: "Accounts locked by the failed-login policy."},
	{ID: cloudhatch.MetricRefreshSuccess, Name: "cloudhatch_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: cloudhatch.MetricRefreshFailure, Name: "cloudhatch_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: cloudhatch.MetricRefreshReuseDetected, Name: "cloudhatch_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: cloudhatch.MetricValidateSuccess, Name: "cloudhatch_validate_success_total", Help: "Successful access-token validations."},
	{ID: cloudhatch.MetricValidateFailure, Name: "cloudhatch_validate_failure_total", Help: "Failed access-token validations."},
	{ID: cloudhatch.MetricOriginRejected, Name: "cloudhatch_origin_rejected_total", Help: "Requests rejected by the origin guard."},
	{ID: cloudhatch.MetricLogout, Name: "cloudhatch_logout_total", Help: "Single-session logout operations."},
	{ID: cloudhatch.MetricLogoutAll, Name: "cloudhatch_logout_all_total", Help: "Logout-everywhere operations."},
}
