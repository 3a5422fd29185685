package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversation_cases (
  case_id TEXT PRIMARY KEY,
  conversation_href TEXT NOT NULL,
  team_uuid TEXT,
  team_name TEXT,
  assigned_user_email TEXT,
  opened_received_at_utc TIMESTAMPTZ NOT NULL,
  opened_payload_created_at_utc TIMESTAMPTZ,
  answered BOOLEAN NOT NULL DEFAULT false,
  first_response_at_utc TIMESTAMPTZ,
  first_response_seconds BIGINT,
  is_closed BOOLEAN NOT NULL DEFAULT false,
  closed_received_at_utc TIMESTAMPTZ,
  closed_payload_closed_at_utc TIMESTAMPTZ,
  duration_seconds BIGINT,
  local_date DATE NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cases_href_opened
  ON conversation_cases (conversation_href, opened_received_at_utc DESC);
CREATE INDEX IF NOT EXISTS idx_cases_open
  ON conversation_cases (conversation_href) WHERE is_closed = false;
CREATE INDEX IF NOT EXISTS idx_cases_local_date
  ON conversation_cases (local_date);

CREATE TABLE IF NOT EXISTS messages_raw (
  uuid TEXT PRIMARY KEY,
  conversation_href TEXT,
  status TEXT NOT NULL,
  channel TEXT NOT NULL,
  created_at_utc TIMESTAMPTZ NOT NULL,
  payload JSONB
);

CREATE TABLE IF NOT EXISTS conversation_day_metrics (
  conversation_href TEXT NOT NULL,
  local_date DATE NOT NULL,
  inbound_count_day INTEGER NOT NULL DEFAULT 0,
  outbound_count_day INTEGER NOT NULL DEFAULT 0,
  first_inbound_at_utc TIMESTAMPTZ,
  first_outbound_after_inbound_at_utc TIMESTAMPTZ,
  answered_same_day BOOLEAN NOT NULL DEFAULT false,
  team_uuid TEXT,
  team_name TEXT,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (conversation_href, local_date)
);

CREATE INDEX IF NOT EXISTS idx_day_metrics_local_date
  ON conversation_day_metrics (local_date);

CREATE TABLE IF NOT EXISTS team_day_metrics (
  team_uuid TEXT NOT NULL,
  local_date DATE NOT NULL,
  team_name TEXT NOT NULL,
  inbound_count INTEGER NOT NULL DEFAULT 0,
  outbound_count INTEGER NOT NULL DEFAULT 0,
  conversations INTEGER NOT NULL DEFAULT 0,
  answered_count INTEGER NOT NULL DEFAULT 0,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (team_uuid, local_date)
);

CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
