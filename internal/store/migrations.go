package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Gesture events - one row per gesture delivered to the listener
		`CREATE TABLE IF NOT EXISTS gesture_events (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK(kind IN ('nod', 'head_shake', 'wink')),
			source TEXT NOT NULL DEFAULT '',
			detected_at DATETIME NOT NULL
		)`,

		// Recordings - captured sensor streams for replay and threshold tuning
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			expected_kind TEXT NOT NULL DEFAULT '',
			interval_ms INTEGER NOT NULL DEFAULT 50,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS recording_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Actions - plugin actions to run when a gesture kind fires
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			gesture_kind TEXT NOT NULL CHECK(gesture_kind IN ('nod', 'head_shake', 'wink')),
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings - key-value application state
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_gesture_events_detected_at ON gesture_events(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recording_samples_recording_id ON recording_samples(recording_id, sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_gesture_kind ON actions(gesture_kind)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
