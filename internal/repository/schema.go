package repository

// schemaStatements are executed one by one at startup; all use IF NOT EXISTS
// so restarts are safe. Timestamps are stored in UTC.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS connections (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		provider VARCHAR(32) NOT NULL,
		provider_user_id VARCHAR(191) NOT NULL,
		encrypted_access_token TEXT NOT NULL,
		encrypted_refresh_token TEXT NOT NULL,
		token_expires_at DATETIME(6) NOT NULL,
		last_sync_at DATETIME(6) NULL,
		sync_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		sync_error TEXT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL,
		KEY idx_connections_user_provider (user_id, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS records (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		dataset VARCHAR(32) NOT NULL,
		provider VARCHAR(32) NOT NULL,
		provider_record_id VARCHAR(191) NOT NULL,
		recorded_at DATETIME(6) NOT NULL,
		body JSON NOT NULL,
		hash CHAR(64) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uniq_records_hash (hash),
		KEY idx_records_user_recorded (user_id, recorded_at),
		KEY idx_records_user_dataset (user_id, dataset, recorded_at)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		action VARCHAR(32) NOT NULL,
		provider VARCHAR(32) NULL,
		details JSON NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		KEY idx_audit_user_time (user_id, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS exports (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		file_name VARCHAR(191) NOT NULL,
		file_size BIGINT NOT NULL,
		download_token CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		blob_id CHAR(36) NOT NULL,
		UNIQUE KEY uniq_exports_token (download_token),
		KEY idx_exports_user_created (user_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS export_blobs (
		id CHAR(36) PRIMARY KEY,
		data LONGBLOB NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
}
