package db

import (
	"context"
	"fmt"
	"time"
)

// Read-side reporting queries. These are stateless aggregations over the
// tables the ingestion path maintains; they never mutate.

type CasesAttendedRow struct {
	Day                  string  `json:"day"`
	InboundConversations int64   `json:"inbound_conversations"`
	AnsweredSameDay      int64   `json:"answered_same_day"`
	PctAnswered          float64 `json:"pct_answered"`
}

func (s *Store) CasesAttendedByDay(ctx context.Context, start, endExclusive string) ([]CasesAttendedRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT
			local_date,
			COUNT(*),
			SUM(CASE WHEN answered_same_day THEN 1 ELSE 0 END),
			ROUND(100.0 * SUM(CASE WHEN answered_same_day THEN 1 ELSE 0 END) / NULLIF(COUNT(*), 0), 2)
		FROM conversation_day_metrics
		WHERE local_date >= $1::date AND local_date < $2::date
		GROUP BY local_date
		ORDER BY local_date
	`, start, endExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CasesAttendedRow
	for rows.Next() {
		var (
			day time.Time
			r   CasesAttendedRow
			pct *float64
		)
		if err := rows.Scan(&day, &r.InboundConversations, &r.AnsweredSameDay, &pct); err != nil {
			return nil, err
		}
		r.Day = day.Format("2006-01-02")
		if pct != nil {
			r.PctAnswered = *pct
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CasesAttendedSummary struct {
	InboundConversations int64   `json:"inbound_conversations"`
	AnsweredSameDay      int64   `json:"answered_same_day"`
	PctAnswered          float64 `json:"pct_answered"`
}

func (s *Store) CasesAttendedTotal(ctx context.Context, start, endExclusive string) (CasesAttendedSummary, error) {
	var (
		sum      CasesAttendedSummary
		answered *int64
		pct      *float64
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			SUM(CASE WHEN answered_same_day THEN 1 ELSE 0 END),
			ROUND(100.0 * SUM(CASE WHEN answered_same_day THEN 1 ELSE 0 END) / NULLIF(COUNT(*), 0), 2)
		FROM conversation_day_metrics
		WHERE local_date >= $1::date AND local_date < $2::date
	`, start, endExclusive).Scan(&sum.InboundConversations, &answered, &pct)
	if err != nil {
		return CasesAttendedSummary{}, err
	}
	if answered != nil {
		sum.AnsweredSameDay = *answered
	}
	if pct != nil {
		sum.PctAnswered = *pct
	}
	return sum, nil
}

type TeamMetricsRow struct {
	TeamUUID             string  `json:"team_uuid"`
	TeamName             string  `json:"team_name"`
	Day                  string  `json:"day"`
	InboundConversations int64   `json:"inbound_conversations"`
	AnsweredSameDay      int64   `json:"answered_same_day"`
	PctAnswered          float64 `json:"pct_answered"`
}

func (s *Store) TeamMetricsByDay(ctx context.Context, start, endExclusive string) ([]TeamMetricsRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT
			COALESCE(team_uuid, 'unknown'),
			COALESCE(team_name, 'unassigned'),
			local_date,
			COUNT(*),
			SUM(CASE WHEN answered_same_day THEN 1 ELSE 0 END),
			ROUND(100.0 * SUM(CASE WHEN answered_same_day THEN 1 ELSE 0 END) / NULLIF(COUNT(*), 0), 2)
		FROM conversation_day_metrics
		WHERE local_date >= $1::date AND local_date < $2::date
		GROUP BY team_uuid, team_name, local_date
		ORDER BY team_name, local_date
	`, start, endExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamMetricsRow
	for rows.Next() {
		var (
			day time.Time
			r   TeamMetricsRow
			pct *float64
		)
		if err := rows.Scan(&r.TeamUUID, &r.TeamName, &day, &r.InboundConversations, &r.AnsweredSameDay, &pct); err != nil {
			return nil, err
		}
		r.Day = day.Format("2006-01-02")
		if pct != nil {
			r.PctAnswered = *pct
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type TeamDailyRow struct {
	Day           string `json:"day"`
	TeamName      string `json:"team_name"`
	InboundCount  int64  `json:"inbound_count"`
	OutboundCount int64  `json:"outbound_count"`
	Conversations int64  `json:"conversations"`
	AnsweredCount int64  `json:"answered_count"`
}

func (s *Store) TeamDailyMetrics(ctx context.Context, teamUUID, start, endExclusive string) ([]TeamDailyRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT local_date, team_name, inbound_count, outbound_count, conversations, answered_count
		FROM team_day_metrics
		WHERE team_uuid = $1 AND local_date >= $2::date AND local_date < $3::date
		ORDER BY local_date
	`, teamUUID, start, endExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamDailyRow
	for rows.Next() {
		var (
			day time.Time
			r   TeamDailyRow
		)
		if err := rows.Scan(&day, &r.TeamName, &r.InboundCount, &r.OutboundCount, &r.Conversations, &r.AnsweredCount); err != nil {
			return nil, err
		}
		r.Day = day.Format("2006-01-02")
		out = append(out, r)
	}
	return out, rows.Err()
}

type FirstResponseRow struct {
	Day              string   `json:"day"`
	TeamUUID         *string  `json:"team_uuid"`
	TeamName         *string  `json:"team_name"`
	AgentEmail       *string  `json:"agent_email"`
	CasesOpened      int64    `json:"cases_opened"`
	CasesAnswered    int64    `json:"cases_answered"`
	AvgFRTSeconds    float64  `json:"avg_frt_seconds"`
	MedianFRTSeconds float64  `json:"median_frt_seconds"`
	P90FRTSeconds    float64  `json:"p90_frt_seconds"`
}

func (s *Store) FirstResponseByDay(ctx context.Context, start, endExclusive string, teamUUID, agentEmail *string) ([]FirstResponseRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT
			local_date,
			team_uuid,
			team_name,
			assigned_user_email,
			COUNT(*),
			SUM(CASE WHEN answered THEN 1 ELSE 0 END),
			ROUND((AVG(first_response_seconds) FILTER (WHERE answered))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY first_response_seconds) FILTER (WHERE answered))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.9) WITHIN GROUP (ORDER BY first_response_seconds) FILTER (WHERE answered))::numeric, 2)
		FROM conversation_cases
		WHERE local_date >= $1::date AND local_date < $2::date
		  AND ($3::text IS NULL OR team_uuid = $3)
		  AND ($4::text IS NULL OR assigned_user_email = $4)
		GROUP BY local_date, team_uuid, team_name, assigned_user_email
		ORDER BY local_date, team_name, assigned_user_email
	`, start, endExclusive, teamUUID, agentEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FirstResponseRow
	for rows.Next() {
		var (
			day              time.Time
			r                FirstResponseRow
			avg, median, p90 *float64
		)
		if err := rows.Scan(&day, &r.TeamUUID, &r.TeamName, &r.AgentEmail, &r.CasesOpened, &r.CasesAnswered, &avg, &median, &p90); err != nil {
			return nil, err
		}
		r.Day = day.Format("2006-01-02")
		r.AvgFRTSeconds = deref(avg)
		r.MedianFRTSeconds = deref(median)
		r.P90FRTSeconds = deref(p90)
		out = append(out, r)
	}
	return out, rows.Err()
}

type FirstResponseSLARow struct {
	Day           string  `json:"day"`
	TeamUUID      *string `json:"team_uuid"`
	TeamName      *string `json:"team_name"`
	AgentEmail    *string `json:"agent_email"`
	CasesAnswered int64   `json:"cases_answered"`
	CasesInSLA    int64   `json:"cases_in_sla"`
	PctSLA        float64 `json:"pct_sla"`
}

func (s *Store) FirstResponseSLA(ctx context.Context, start, endExclusive string, maxSeconds int64, teamUUID, agentEmail *string) ([]FirstResponseSLARow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT
			local_date,
			team_uuid,
			team_name,
			assigned_user_email,
			COUNT(*) FILTER (WHERE answered),
			SUM(CASE WHEN answered AND first_response_seconds <= $3 THEN 1 ELSE 0 END),
			ROUND((
				100.0 * SUM(CASE WHEN answered AND first_response_seconds <= $3 THEN 1 ELSE 0 END)
				/ NULLIF(COUNT(*) FILTER (WHERE answered), 0)
			)::numeric, 2)
		FROM conversation_cases
		WHERE local_date >= $1::date AND local_date < $2::date
		  AND ($4::text IS NULL OR team_uuid = $4)
		  AND ($5::text IS NULL OR assigned_user_email = $5)
		GROUP BY local_date, team_uuid, team_name, assigned_user_email
		ORDER BY local_date, team_name, assigned_user_email
	`, start, endExclusive, maxSeconds, teamUUID, agentEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FirstResponseSLARow
	for rows.Next() {
		var (
			day time.Time
			r   FirstResponseSLARow
			pct *float64
		)
		if err := rows.Scan(&day, &r.TeamUUID, &r.TeamName, &r.AgentEmail, &r.CasesAnswered, &r.CasesInSLA, &pct); err != nil {
			return nil, err
		}
		r.Day = day.Format("2006-01-02")
		r.PctSLA = deref(pct)
		out = append(out, r)
	}
	return out, rows.Err()
}

type AgentFirstResponseRow struct {
	AgentEmail       *string `json:"agent_email"`
	CasesOpened      int64   `json:"cases_opened"`
	CasesAnswered    int64   `json:"cases_answered"`
	AvgFRTSeconds    float64 `json:"avg_frt_seconds"`
	MedianFRTSeconds float64 `json:"median_frt_seconds"`
	P90FRTSeconds    float64 `json:"p90_frt_seconds"`
}

func (s *Store) FirstResponseByAgent(ctx context.Context, start, endExclusive string, teamUUID *string) ([]AgentFirstResponseRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT
			assigned_user_email,
			COUNT(*),
			SUM(CASE WHEN answered THEN 1 ELSE 0 END),
			ROUND((AVG(first_response_seconds) FILTER (WHERE answered))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY first_response_seconds) FILTER (WHERE answered))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.9) WITHIN GROUP (ORDER BY first_response_seconds) FILTER (WHERE answered))::numeric, 2)
		FROM conversation_cases
		WHERE local_date >= $1::date AND local_date < $2::date
		  AND ($3::text IS NULL OR team_uuid = $3)
		GROUP BY assigned_user_email
		ORDER BY assigned_user_email
	`, start, endExclusive, teamUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentFirstResponseRow
	for rows.Next() {
		var (
			r                AgentFirstResponseRow
			avg, median, p90 *float64
		)
		if err := rows.Scan(&r.AgentEmail, &r.CasesOpened, &r.CasesAnswered, &avg, &median, &p90); err != nil {
			return nil, err
		}
		r.AvgFRTSeconds = deref(avg)
		r.MedianFRTSeconds = deref(median)
		r.P90FRTSeconds = deref(p90)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) FirstResponseAgentRanking(ctx context.Context, start, endExclusive string, descending bool, limit int, teamUUID *string) ([]AgentFirstResponseRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT
			assigned_user_email,
			COUNT(*),
			COUNT(*) FILTER (WHERE answered),
			ROUND((AVG(first_response_seconds) FILTER (WHERE answered))::numeric, 2) AS avg_frt_seconds,
			ROUND((PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY first_response_seconds) FILTER (WHERE answered))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.9) WITHIN GROUP (ORDER BY first_response_seconds) FILTER (WHERE answered))::numeric, 2)
		FROM conversation_cases
		WHERE local_date >= $1::date AND local_date < $2::date
		  AND assigned_user_email IS NOT NULL
		  AND ($3::text IS NULL OR team_uuid = $3)
		GROUP BY assigned_user_email
		ORDER BY avg_frt_seconds %s NULLS LAST, assigned_user_email
		LIMIT $4
	`, direction)

	rows, err := s.Pool.Query(ctx, query, start, endExclusive, teamUUID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentFirstResponseRow
	for rows.Next() {
		var (
			r                AgentFirstResponseRow
			avg, median, p90 *float64
		)
		if err := rows.Scan(&r.AgentEmail, &r.CasesOpened, &r.CasesAnswered, &avg, &median, &p90); err != nil {
			return nil, err
		}
		r.AvgFRTSeconds = deref(avg)
		r.MedianFRTSeconds = deref(median)
		r.P90FRTSeconds = deref(p90)
		out = append(out, r)
	}
	return out, rows.Err()
}

type ResolutionRow struct {
	Day                   string  `json:"day"`
	TeamUUID              *string `json:"team_uuid"`
	TeamName              *string `json:"team_name"`
	AgentEmail            *string `json:"agent_email"`
	CasesClosed           int64   `json:"cases_closed"`
	AvgDurationSeconds    float64 `json:"avg_duration_seconds"`
	MedianDurationSeconds float64 `json:"median_duration_seconds"`
	P90DurationSeconds    float64 `json:"p90_duration_seconds"`
}

func (s *Store) ResolutionByDay(ctx context.Context, start, endExclusive string, teamUUID, agentEmail *string) ([]ResolutionRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT
			local_date,
			team_uuid,
			team_name,
			assigned_user_email,
			COUNT(*) FILTER (WHERE is_closed),
			ROUND((AVG(duration_seconds) FILTER (WHERE is_closed))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY duration_seconds) FILTER (WHERE is_closed))::numeric, 2),
			ROUND((PERCENTILE_CONT(0.9) WITHIN GROUP (ORDER BY duration_seconds) FILTER (WHERE is_closed))::numeric, 2)
		FROM conversation_cases
		WHERE local_date >= $1::date AND local_date < $2::date
		  AND ($3::text IS NULL OR team_uuid = $3)
		  AND ($4::text IS NULL OR assigned_user_email = $4)
		GROUP BY local_date, team_uuid, team_name, assigned_user_email
		ORDER BY local_date, team_name, assigned_user_email
	`, start, endExclusive, teamUUID, agentEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResolutionRow
	for rows.Next() {
		var (
			day              time.Time
			r                ResolutionRow
			avg, median, p90 *float64
		)
		if err := rows.Scan(&day, &r.TeamUUID, &r.TeamName, &r.AgentEmail, &r.CasesClosed, &avg, &median, &p90); err != nil {
			return nil, err
		}
		r.Day = day.Format("2006-01-02")
		r.AvgDurationSeconds = deref(avg)
		r.MedianDurationSeconds = deref(median)
		r.P90DurationSeconds = deref(p90)
		out = append(out, r)
	}
	return out, rows.Err()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
