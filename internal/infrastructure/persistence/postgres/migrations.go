package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE CLASSROOM
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Key/value settings: class name and point presets as JSON documents.
CREATE TABLE IF NOT EXISTS app_config (
    key VARCHAR(64) PRIMARY KEY,
    value JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Roster; seq preserves insertion order for the leaderboard tie-break.
CREATE TABLE IF NOT EXISTS students (
    seq BIGSERIAL,
    id VARCHAR(128) PRIMARY KEY,
    name VARCHAR(50) NOT NULL,
    avatar TEXT NOT NULL,
    gender VARCHAR(8) NOT NULL CHECK (gender IN ('boy', 'girl')),
    extra_info TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_students_seq ON students(seq);

-- One pet per student, keyed by the student id.
CREATE TABLE IF NOT EXISTS pets (
    id VARCHAR(128) PRIMARY KEY,
    name TEXT NOT NULL,
    stage SMALLINT NOT NULL DEFAULT 0 CHECK (stage BETWEEN 0 AND 9),
    progress SMALLINT NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
    points INTEGER NOT NULL DEFAULT 0,
    food INTEGER NOT NULL DEFAULT 0 CHECK (food >= 0),
    custom_images JSONB NOT NULL DEFAULT '[]',
    is_adopted BOOLEAN NOT NULL DEFAULT TRUE,
    adoption_date BIGINT NOT NULL DEFAULT 0,
    logs JSONB NOT NULL DEFAULT '[]'
);
`

const migration001Down = `
DROP TABLE IF EXISTS pets;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS app_config;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE RESOURCES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS pet_image_packs (
    seq BIGSERIAL,
    id VARCHAR(128) PRIMARY KEY,
    name TEXT NOT NULL,
    images JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS avatar_presets (
    seq BIGSERIAL,
    id VARCHAR(128) PRIMARY KEY,
    name TEXT NOT NULL,
    image TEXT NOT NULL
);

-- Bounded avatar pool; eviction order is (ts, seq).
CREATE TABLE IF NOT EXISTS pool_assets (
    seq BIGSERIAL,
    id VARCHAR(128) PRIMARY KEY,
    image TEXT NOT NULL,
    ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pool_assets_order ON pool_assets(ts, seq);
`

const migration002Down = `
DROP TABLE IF EXISTS pool_assets;
DROP TABLE IF EXISTS avatar_presets;
DROP TABLE IF EXISTS pet_image_packs;
`
