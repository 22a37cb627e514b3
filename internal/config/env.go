// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"strconv"
	"strings"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// ApplyEnv overrides storage and commerce settings from the environment, so
// container deployments can run without editing the YAML file.
func (cfg *Config) ApplyEnv(lookup LookupEnv) {
	get := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if value, ok := lookup(key); ok {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					return trimmed, true
				}
			}
		}
		return "", false
	}
	getBool := func(key string) (bool, bool) {
		v, ok := get(key)
		if !ok {
			return false, false
		}
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}

	if v, ok := get("COMMERCE_STORE_URL"); ok {
		cfg.Commerce.StoreURL = v
	}
	if v, ok := get("COMMERCE_GRAPHQL_ENDPOINT"); ok {
		cfg.Commerce.GraphQLEndpoint = v
	}
	if v, ok := get("STORAGE_DRIVER"); ok {
		cfg.Storage.Driver = v
	}
	if v, ok := get("PGSTORE_DSN", "pgstore_dsn"); ok {
		cfg.Storage.Postgres.DSN = v
		if _, explicit := get("STORAGE_DRIVER"); !explicit {
			cfg.Storage.Driver = "postgres"
		}
	}
	if v, ok := get("PGSTORE_SCHEMA", "pgstore_schema"); ok {
		cfg.Storage.Postgres.Schema = v
	}
	if v, ok := get("OBJECTSTORE_ENDPOINT", "objectstore_endpoint"); ok {
		cfg.Storage.Object.Endpoint = v
		if _, explicit := get("STORAGE_DRIVER"); !explicit && cfg.Storage.Postgres.DSN == "" {
			cfg.Storage.Driver = "object"
		}
	}
	if v, ok := get("OBJECTSTORE_BUCKET", "objectstore_bucket"); ok {
		cfg.Storage.Object.Bucket = v
	}
	if v, ok := get("OBJECTSTORE_ACCESS_KEY", "objectstore_access_key"); ok {
		cfg.Storage.Object.AccessKey = v
	}
	if v, ok := get("OBJECTSTORE_SECRET_KEY", "objectstore_secret_key"); ok {
		cfg.Storage.Object.SecretKey = v
	}
	if v, ok := get("OBJECTSTORE_REGION"); ok {
		cfg.Storage.Object.Region = v
	}
	if v, ok := get("OBJECTSTORE_PREFIX"); ok {
		cfg.Storage.Object.Prefix = v
	}
	if v, ok := getBool("OBJECTSTORE_USE_SSL"); ok {
		cfg.Storage.Object.UseSSL = v
	}
	if v, ok := getBool("OBJECTSTORE_PATH_STYLE"); ok {
		cfg.Storage.Object.PathStyle = v
	}
	cfg.Sanitize()
}
