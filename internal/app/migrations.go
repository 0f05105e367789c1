package app

import "letrasamigas.es/progress-service/internal/db/postgres"

// SQL migrations are compiled into the binary to keep deployment a single artifact.
// Applied versions are recorded in schema_migrations.
var migrations = []postgres.Migration{
	{Version: 1, Name: "profiles", SQL: migration001Profiles},
	{Version: 2, Name: "points_ledger", SQL: migration002PointsLedger},
	{Version: 3, Name: "exercise_results", SQL: migration003ExerciseResults},
	{Version: 4, Name: "admin_login_attempts", SQL: migration004AdminAttempts},
}

var migration001Profiles = `
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    username VARCHAR(255),
    daily_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_streak_update TIMESTAMPTZ,
    points BIGINT NOT NULL DEFAULT 0,
    time_spent INTEGER NOT NULL DEFAULT 0,
    last_active TIMESTAMPTZ,
    telegram_chat_id BIGINT,
    reminder_sent_on DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_profiles_reminders
    ON profiles(last_streak_update)
    WHERE telegram_chat_id IS NOT NULL;
`

var migration002PointsLedger = `
CREATE TABLE IF NOT EXISTS points_ledger (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    amount BIGINT NOT NULL CHECK (amount > 0),
    reason TEXT NOT NULL,
    source VARCHAR(32) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_points_ledger_user_created
    ON points_ledger(user_id, created_at DESC);
`

var migration003ExerciseResults = `
CREATE TABLE IF NOT EXISTS exercise_results (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    exercise_type VARCHAR(32) NOT NULL,
    exercise_id VARCHAR(255) NOT NULL,
    score INTEGER NOT NULL,
    max_score INTEGER NOT NULL,
    points_earned BIGINT NOT NULL DEFAULT 0,
    grade INTEGER NOT NULL DEFAULT 0,
    details JSONB,
    completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_exercise_results_user_completed
    ON exercise_results(user_id, completed_at DESC);
`

var migration004AdminAttempts = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    client VARCHAR(64) NOT NULL,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_client_time
    ON admin_login_attempts(client, attempt_time DESC);
`
