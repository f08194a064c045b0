package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/kirkbardini/foodlogkm-sub000/internal/flagx"
	"github.com/kirkbardini/foodlogkm-sub000/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// keep the value from the earlier stage.
type JsonConfig struct {
	LocalDBPath         *string         `json:"local_db_path"`
	RemoteDSN           *string         `json:"remote_dsn"`
	UserID              *string         `json:"user_id"`
	Accounts            []string        `json:"accounts"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	EnableSubscriptions *bool           `json:"enable_subscriptions"`
	LogFile             *string         `json:"log_file"`
	LogLevel            *string         `json:"log_level"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing. Read and unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.RemoteDSN, jc.RemoteDSN)
	setString(&cfg.UserID, jc.UserID)
	if jc.Accounts != nil {
		cfg.Accounts = splitList(strings.Join(jc.Accounts, ","))
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.EnableSubscriptions != nil {
		cfg.EnableSubscriptions = *jc.EnableSubscriptions
	}
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
