package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

func Init(dbPath string) error {
	var err error
	once.Do(func() {
		// 确保数据目录存在
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err = os.MkdirAll(dir, 0755); err != nil {
				return
			}
		}

		// 添加连接参数：WAL模式、忙等待超时、外键约束
		dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return
		}
		if err = db.Ping(); err != nil {
			return
		}

		// 限制连接池大小，SQLite 单写多读
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		err = createTables()
		if err != nil {
			return
		}
		err = runMigrations()
	})
	return err
}

// InitForTest opens an isolated in-memory database, bypassing the singleton.
func InitForTest() error {
	var err error
	db, err = sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	if err = createTables(); err != nil {
		return err
	}
	return runMigrations()
}

func GetDB() *sql.DB {
	return db
}

func createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS providers (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		api_endpoint TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		auth_method TEXT NOT NULL DEFAULT 'bearer_token',
		dialect TEXT NOT NULL DEFAULT 'openai',
		default_model TEXT NOT NULL DEFAULT '',
		tier_mapping_json TEXT NOT NULL DEFAULT '{}',
		model_override_json TEXT NOT NULL DEFAULT '{}',
		headers_json TEXT NOT NULL DEFAULT '[]',
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_providers_name ON providers(name);
	CREATE INDEX IF NOT EXISTS idx_providers_active ON providers(is_active);

	CREATE TABLE IF NOT EXISTS command_aliases (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		alias TEXT UNIQUE NOT NULL,
		prompt_variant TEXT NOT NULL DEFAULT 'standard',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (provider_id) REFERENCES providers(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_command_aliases_provider ON command_aliases(provider_id);
	CREATE INDEX IF NOT EXISTS idx_command_aliases_alias ON command_aliases(alias);

	CREATE TABLE IF NOT EXISTS prompt_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		use_custom_prompt INTEGER NOT NULL DEFAULT 0,
		prompt_template TEXT NOT NULL DEFAULT '',
		system_name TEXT NOT NULL DEFAULT 'AI Assistant',
		model_name_override TEXT NOT NULL DEFAULT '',
		remove_ai_references INTEGER NOT NULL DEFAULT 0,
		remove_defensive_restrictions INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS app_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		rate_limit_enabled INTEGER NOT NULL DEFAULT 1,
		rate_limit_requests INTEGER NOT NULL DEFAULT 100,
		rate_limit_window_secs INTEGER NOT NULL DEFAULT 3600,
		request_timeout_secs INTEGER NOT NULL DEFAULT 300,
		stream_idle_timeout_secs INTEGER NOT NULL DEFAULT 120,
		enable_full_logging INTEGER NOT NULL DEFAULT 1,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		request_id TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		provider_name TEXT NOT NULL DEFAULT '',
		original_model TEXT NOT NULL DEFAULT '',
		mapped_model TEXT NOT NULL DEFAULT '',
		dialect TEXT NOT NULL DEFAULT '',
		status_code INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		is_streaming INTEGER NOT NULL DEFAULT 0,
		error_type TEXT,
		input_tokens INTEGER,
		output_tokens INTEGER,
		request_json TEXT,
		response_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_request_logs_time ON request_logs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_request_logs_provider_time ON request_logs(provider_name, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_request_logs_model_time ON request_logs(mapped_model, created_at DESC);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return err
	}
	return seedSingletons()
}

// seedSingletons 确保单例配置行存在
func seedSingletons() error {
	if _, err := db.Exec(`INSERT OR IGNORE INTO prompt_config (id) VALUES (1)`); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO app_settings (id) VALUES (1)`)
	return err
}

func runMigrations() error {
	// 旧库缺少流式空闲超时列时补齐
	_, _ = db.Exec(`ALTER TABLE app_settings ADD COLUMN stream_idle_timeout_secs INTEGER NOT NULL DEFAULT 120`)
	_, _ = db.Exec(`ALTER TABLE request_logs ADD COLUMN input_tokens INTEGER`)
	_, _ = db.Exec(`ALTER TABLE request_logs ADD COLUMN output_tokens INTEGER`)
	return nil
}

func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}
