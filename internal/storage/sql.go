package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      mode,
                      scope,
                      generator,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    mode,
    scope,
    generator,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    mode,
    scope,
    generator,
    config
FROM sessions
ORDER BY start_time, id`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     seq,
                     frequency,
                     input_vpp,
                     output_vpp,
                     module,
                     phase)
VALUES `

	selectSamplesSQL = `
SELECT
    frequency,
    input_vpp,
    output_vpp,
    module,
    phase
FROM samples
WHERE
    session_id = ?
    AND frequency BETWEEN ? AND ?
ORDER BY seq`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_samples_session_seq ON samples (session_id, seq);`
)

//go:embed schema.sql
var initSchemaSQL string
