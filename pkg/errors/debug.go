package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of a failed request. It never reaches
// clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGClass      string `json:"pg_class,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
	// Hint names the CollectZ rule behind a violated constraint.
	Hint string `json:"hint,omitempty"`
}

var sqlStateClasses = map[string]string{
	"08": "connection_exception",
	"22": "data_exception",
	"23": "integrity_constraint_violation",
	"25": "invalid_transaction_state",
	"40": "transaction_rollback",
	"42": "syntax_error_or_access_rule_violation",
	"53": "insufficient_resources",
	"57": "operator_intervention",
}

var constraintHints = map[string]string{
	"uq_users_phone":                    "phone number already registered",
	"uq_users_email":                    "email already registered",
	"chk_users_role":                    "unknown user role",
	"uq_household_profiles_user":        "user already has a household profile",
	"uq_agent_profiles_user":            "user already has an agent profile",
	"chk_agent_kyc_status":              "unknown KYC status",
	"chk_agent_average_rating":          "agent average outside 0..5",
	"chk_agent_completed_non_negative":  "completed pickups counter went negative",
	"uq_pickup_requests_tracking_label": "tracking label collision",
	"chk_pickup_requests_status":        "unknown pickup status",
	"chk_pickup_requests_agent_bound":   "pickup past REQUESTED without an agent",
	"chk_pickup_requests_completed_at":  "completed pickup without completed_at",
	"uq_ratings_pickup_request":         "pickup already rated",
	"chk_ratings_score":                 "rating score outside 1..5",
	"chk_community_bins_capacity":       "unknown bin capacity",
	"chk_notifications_type":            "unknown notification type",
	"uq_outbox_dlq_event":               "outbox event already dead-lettered",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if d.fillPG(err) {
		if len(d.PGCode) >= 2 {
			d.PGClass = sqlStateClasses[d.PGCode[:2]]
		}
		d.Hint = constraintHints[d.PGConstraint]
	}
	return d
}

// fillPG copies server error fields from whichever postgres driver raised
// the error.
func (d *ErrorDump) fillPG(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode, d.PGConstraint, d.PGTable = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName
		d.PGColumn, d.PGDetail, d.PGMessage = pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode, d.PGConstraint, d.PGTable = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		d.PGColumn, d.PGDetail, d.PGMessage = pqErr.Column, pqErr.Detail, pqErr.Message
		return true
	}
	return false
}
