package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Matching   MatchingConfig   `yaml:"matching"`
	Search     SearchConfig     `yaml:"search"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Office     OfficeConfig     `yaml:"office"`
	Notify     NotifyConfig     `yaml:"notify"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"LOSTFOUND_DB_PATH" env-default:"~/.lostfound/lostfound.db"`
}

// EmbeddingsConfig selects and tunes the encoder backend.
type EmbeddingsConfig struct {
	Provider  string        `yaml:"provider"   env:"LOSTFOUND_EMBEDDING_PROVIDER" env-default:"local"`
	APIKey    string        `yaml:"api_key"    env:"JINA_API_KEY"`
	BaseURL   string        `yaml:"base_url"   env:"LOSTFOUND_EMBEDDING_URL"      env-default:"https://api.jina.ai/v1/embeddings"`
	TextModel string        `yaml:"text_model" env:"LOSTFOUND_TEXT_MODEL"         env-default:"jina-embeddings-v3"`
	ClipModel string        `yaml:"clip_model" env:"LOSTFOUND_CLIP_MODEL"         env-default:"jina-clip-v2"`
	CacheSize int           `yaml:"cache_size" env:"LOSTFOUND_EMBEDDING_CACHE"    env-default:"10000"`
	Timeout   time.Duration `yaml:"timeout"    env:"LOSTFOUND_EMBEDDING_TIMEOUT"  env-default:"30s"`
}

// MatchingConfig tunes the matching engine and its worker pool.
type MatchingConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"MATCH_CONFIDENCE_THRESHOLD" env-default:"0.70"`
	MaxMatchesReturned  int     `yaml:"max_matches_returned" env:"MAX_MATCHES_RETURNED"       env-default:"20"`
	Workers             int     `yaml:"workers"              env:"MATCH_WORKERS"              env-default:"4"`
	QueueSize           int     `yaml:"queue_size"           env:"MATCH_QUEUE_SIZE"           env-default:"256"`
}

// SearchConfig tunes the hybrid ranker.
type SearchConfig struct {
	FuzzyWeight  float64       `yaml:"fuzzy_weight"  env:"SEARCH_FUZZY_WEIGHT"  env-default:"0.4"`
	VectorWeight float64       `yaml:"vector_weight" env:"SEARCH_VECTOR_WEIGHT" env-default:"0.6"`
	MinScore     float64       `yaml:"min_score"     env:"SEARCH_MIN_SCORE"     env-default:"0.3"`
	DefaultLimit int           `yaml:"default_limit" env:"SEARCH_LIMIT"         env-default:"50"`
	CacheSize    int           `yaml:"cache_size"    env:"SEARCH_CACHE_SIZE"    env-default:"1000"`
	CacheTTL     time.Duration `yaml:"cache_ttl"     env:"SEARCH_CACHE_TTL"     env-default:"5m"`
}

// UploadsConfig controls where and how item images are stored.
type UploadsConfig struct {
	Dir      string `yaml:"dir"       env:"UPLOAD_DIR"       env-default:"static/uploads"`
	MaxBytes int64  `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"5242880"`
}

// OfficeConfig is the admin office contact disclosed for office reports.
type OfficeConfig struct {
	Name          string `yaml:"name"           env:"ADMIN_OFFICE_NAME"    env-default:"Campus Admin Office"`
	Email         string `yaml:"email"          env:"ADMIN_OFFICE_EMAIL"   env-default:"admin-office@university.local"`
	ContactNumber string `yaml:"contact_number" env:"ADMIN_OFFICE_CONTACT" env-default:"000-000-0000"`
}

// NotifyConfig holds SMTP settings. An empty host logs mail instead of sending it.
type NotifyConfig struct {
	SMTPHost      string        `yaml:"smtp_host"      env:"SMTP_HOST"`
	SMTPPort      int           `yaml:"smtp_port"      env:"SMTP_PORT"            env-default:"587"`
	SMTPUsername  string        `yaml:"smtp_username"  env:"SMTP_USERNAME"`
	SMTPPassword  string        `yaml:"smtp_password"  env:"SMTP_PASSWORD"`
	UseTLS        bool          `yaml:"use_tls"        env:"SMTP_USE_TLS"         env-default:"true"`
	Timeout       time.Duration `yaml:"timeout"        env:"SMTP_TIMEOUT"         env-default:"10s"`
	SenderName    string        `yaml:"sender_name"    env:"EMAIL_SENDER_NAME"    env-default:"Campus Lost & Found"`
	SenderAddress string        `yaml:"sender_address" env:"EMAIL_SENDER_ADDRESS" env-default:"no-reply@university.local"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
