package database

// The MySQL driver executes one statement per Exec, so the bootstrap schema
// is kept as separate statements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
    id CHAR(36) PRIMARY KEY,
    email VARCHAR(255),
    full_name VARCHAR(255),
    avatar_url VARCHAR(512),
    credits_balance INT NOT NULL DEFAULT 100,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS usage_records (
    id CHAR(36) PRIMARY KEY,
    user_id CHAR(36) NOT NULL,
    type VARCHAR(32) NOT NULL,
    model VARCHAR(32) NOT NULL,
    prompt TEXT,
    image_url VARCHAR(2048),
    credits_used INT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX usage_records_user_created (user_id, created_at DESC)
)`,
	`CREATE TABLE IF NOT EXISTS recharge_records (
    id CHAR(36) PRIMARY KEY,
    user_id CHAR(36) NOT NULL,
    amount INT NOT NULL,
    credits INT NOT NULL,
    payment_method VARCHAR(64),
    payment_id VARCHAR(128),
    status VARCHAR(16) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX recharge_records_user_created (user_id, created_at DESC),
    INDEX recharge_records_payment (payment_id)
)`,
}
