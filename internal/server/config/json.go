package config

import (
	"encoding/json"
	"os"

	"github.com/djamrezki/storage-stream-api/internal/flagx"
)

// JSONConfig mirrors Config for unmarshalling. It is an intermediate DTO
// only: after unmarshalling, set fields are copied into the runtime
// Config, leaving unset fields at their current values.
type JSONConfig struct {
	EndpointAddrHTTP *string `json:"endpoint_addr_http"`
	DatabaseDSN      *string `json:"database_dsn"`
	StorageBackend   *string `json:"storage_backend"`
	LocalStoragePath *string `json:"local_storage_path"`
	S3RootUser       *string `json:"s3_root_user"`
	S3RootPassword   *string `json:"s3_root_password"`
	S3Bucket         *string `json:"s3_bucket"`
	S3Region         *string `json:"s3_region"`
	S3BaseEndpoint   *string `json:"s3_base_endpoint"`
	SniffWindowBytes *int    `json:"sniff_window_bytes"`
}

// parseJSON loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flags; if
// neither is set, no file is loaded. Fields absent from the file keep
// their previous values. An unreadable or invalid file panics: starting
// with a half-applied config would be worse than not starting.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JSONConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.LocalStoragePath, c.LocalStoragePath)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.SniffWindowBytes != nil {
		config.SniffWindowBytes = *c.SniffWindowBytes
	}
}
