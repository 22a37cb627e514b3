// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the storefront-bridge server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to the commerce backend, bridge cookie, storage and management settings.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort                 = 8318
	DefaultCommerceTimeout      = 15
	DefaultCookieExpirationDays = 30
	DefaultTokenTTLSeconds      = 3600
	DefaultBridgeRoute          = "/bridge/state/index/"
	DefaultAuthNamespace        = "COMMERCE_AUTH_CACHE"
	DefaultSQLitePath           = "bridge.db"
)

// ErrConfigValueNotFound is returned by ConfigValue for unknown names.
var ErrConfigValueNotFound = errors.New("config value not found")

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the server will listen.
	Port int `yaml:"port" json:"-"`

	// TLS config controls HTTPS server settings.
	TLS TLSConfig `yaml:"tls" json:"tls"`

	// RemoteManagement nests management-related options under 'remote-management'.
	RemoteManagement RemoteManagement `yaml:"remote-management" json:"-"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the size (in MB) of the rotating log file. 0 uses the rotation default.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// Commerce configures the commerce backend.
	Commerce CommerceConfig `yaml:"commerce" json:"commerce"`

	// Bridge configures the cookie channel shared with the backend.
	Bridge BridgeConfig `yaml:"bridge" json:"bridge"`

	// Storage selects the durable session storage backend.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Values are storefront configuration values exposed through ConfigValue.
	Values map[string]string `yaml:"values" json:"values"`
}

// TLSConfig holds HTTPS server settings.
type TLSConfig struct {
	// Enable toggles HTTPS server mode.
	Enable bool `yaml:"enable" json:"enable"`
	// Cert is the path to the TLS certificate file.
	Cert string `yaml:"cert" json:"cert"`
	// Key is the path to the TLS private key file.
	Key string `yaml:"key" json:"key"`
}

// RemoteManagement holds management API configuration under 'remote-management'.
type RemoteManagement struct {
	// AllowRemote toggles remote (non-localhost) access to management API.
	AllowRemote bool `yaml:"allow-remote"`
	// SecretKey is the management key (plaintext or bcrypt hashed). YAML key intentionally 'secret-key'.
	SecretKey string `yaml:"secret-key"`
}

// CommerceConfig describes the commerce backend.
type CommerceConfig struct {
	// StoreURL is the public base URL of the backend storefront.
	StoreURL string `yaml:"store-url" json:"store-url"`
	// GraphQLEndpoint defaults to {store-url}/graphql.
	GraphQLEndpoint string `yaml:"graphql-endpoint" json:"graphql-endpoint"`
	// Headers are sent with every GraphQL request (e.g. Store).
	Headers map[string]string `yaml:"headers" json:"headers"`
	// TimeoutSeconds bounds every GraphQL request.
	TimeoutSeconds int `yaml:"timeout-seconds" json:"timeout-seconds"`
}

// BridgeConfig describes the cookie channel and bridge route.
type BridgeConfig struct {
	Route                string `yaml:"route" json:"route"`
	AuthNamespace        string `yaml:"auth-namespace" json:"auth-namespace"`
	CookieDomain         string `yaml:"cookie-domain" json:"cookie-domain"`
	CookieExpirationDays int    `yaml:"cookie-expiration-days" json:"cookie-expiration-days"`
	CookieSecure         bool   `yaml:"cookie-secure" json:"cookie-secure"`
	TokenTTLSeconds      int    `yaml:"token-ttl-seconds" json:"token-ttl-seconds"`
}

// StorageConfig selects the session storage backend.
type StorageConfig struct {
	// Driver is one of memory, file, sqlite, postgres, object.
	Driver     string         `yaml:"driver" json:"driver"`
	Dir        string         `yaml:"dir" json:"dir"`
	SQLitePath string         `yaml:"sqlite-path" json:"sqlite-path"`
	Postgres   PostgresConfig `yaml:"postgres" json:"postgres"`
	Object     ObjectConfig   `yaml:"object" json:"object"`
}

// PostgresConfig configures the Postgres storage backend.
type PostgresConfig struct {
	DSN    string `yaml:"dsn" json:"-"`
	Schema string `yaml:"schema" json:"schema"`
	Table  string `yaml:"table" json:"table"`
}

// ObjectConfig configures the S3-compatible storage backend.
type ObjectConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access-key" json:"-"`
	SecretKey string `yaml:"secret-key" json:"-"`
	Region    string `yaml:"region" json:"region"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	UseSSL    bool   `yaml:"use-ssl" json:"use-ssl"`
	PathStyle bool   `yaml:"path-style" json:"path-style"`
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, applies defaults and returns it.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, it returns a default Config.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Hash remote management key if plaintext is detected.
	if cfg.RemoteManagement.SecretKey != "" && !looksLikeBcrypt(cfg.RemoteManagement.SecretKey) {
		hashed, errHash := hashSecret(cfg.RemoteManagement.SecretKey)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash remote management key: %w", errHash)
		}
		cfg.RemoteManagement.SecretKey = hashed
		// Persist the hashed value so it is not re-hashed on next startup.
		_ = SaveConfigUpdateNestedScalar(configFile, []string{"remote-management", "secret-key"}, hashed)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Port: DefaultPort,
		Commerce: CommerceConfig{
			TimeoutSeconds: DefaultCommerceTimeout,
		},
		Bridge: BridgeConfig{
			Route:                DefaultBridgeRoute,
			AuthNamespace:        DefaultAuthNamespace,
			CookieExpirationDays: DefaultCookieExpirationDays,
			TokenTTLSeconds:      DefaultTokenTTLSeconds,
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: DefaultSQLitePath,
		},
	}
	cfg.Sanitize()
	return cfg
}

// Sanitize normalizes every section.
func (cfg *Config) Sanitize() {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogsMaxTotalSizeMB < 0 {
		cfg.LogsMaxTotalSizeMB = 0
	}
	cfg.SanitizeCommerce()
	cfg.SanitizeBridge()
	cfg.SanitizeStorage()
	cfg.Values = NormalizeHeaders(cfg.Values)
}

// SanitizeCommerce trims URLs, derives the GraphQL endpoint from the store URL
// and normalizes headers.
func (cfg *Config) SanitizeCommerce() {
	c := &cfg.Commerce
	c.StoreURL = strings.TrimRight(strings.TrimSpace(c.StoreURL), "/")
	c.GraphQLEndpoint = strings.TrimSpace(c.GraphQLEndpoint)
	if c.GraphQLEndpoint == "" && c.StoreURL != "" {
		c.GraphQLEndpoint = c.StoreURL + "/graphql"
	} else if strings.HasPrefix(c.GraphQLEndpoint, "/") && c.StoreURL != "" {
		c.GraphQLEndpoint = c.StoreURL + c.GraphQLEndpoint
	}
	c.Headers = NormalizeHeaders(c.Headers)
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultCommerceTimeout
	}
}

// SanitizeBridge restores defaults for empty or invalid bridge settings.
func (cfg *Config) SanitizeBridge() {
	b := &cfg.Bridge
	b.Route = strings.TrimSpace(b.Route)
	if b.Route == "" {
		b.Route = DefaultBridgeRoute
	}
	b.AuthNamespace = strings.TrimSpace(b.AuthNamespace)
	if b.AuthNamespace == "" {
		b.AuthNamespace = DefaultAuthNamespace
	}
	b.CookieDomain = strings.TrimSpace(b.CookieDomain)
	if b.CookieExpirationDays <= 0 {
		b.CookieExpirationDays = DefaultCookieExpirationDays
	}
	if b.TokenTTLSeconds <= 0 {
		b.TokenTTLSeconds = DefaultTokenTTLSeconds
	}
}

// SanitizeStorage lowercases the driver and restores defaults.
func (cfg *Config) SanitizeStorage() {
	s := &cfg.Storage
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = "memory"
	}
	s.Dir = strings.TrimSpace(s.Dir)
	s.SQLitePath = strings.TrimSpace(s.SQLitePath)
	if s.SQLitePath == "" {
		s.SQLitePath = DefaultSQLitePath
	}
	s.Postgres.DSN = strings.TrimSpace(s.Postgres.DSN)
	s.Postgres.Schema = strings.TrimSpace(s.Postgres.Schema)
	s.Object.Endpoint = strings.TrimSpace(s.Object.Endpoint)
	s.Object.Bucket = strings.TrimSpace(s.Object.Bucket)
	s.Object.Prefix = strings.Trim(strings.TrimSpace(s.Object.Prefix), "/")
}

// Validate reports settings the server cannot start without.
func (cfg *Config) Validate() error {
	if cfg.Commerce.StoreURL == "" {
		return fmt.Errorf("commerce.store-url is required")
	}
	if u, err := url.Parse(cfg.Commerce.StoreURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("commerce.store-url %q is not an absolute URL", cfg.Commerce.StoreURL)
	}
	switch cfg.Storage.Driver {
	case "memory", "file", "sqlite", "postgres", "object":
	default:
		return fmt.Errorf("storage.driver %q is not supported", cfg.Storage.Driver)
	}
	return nil
}

// ConfigValue looks up a storefront configuration value. The commerce URLs are
// available under their storefront names unless overridden in values.
func (cfg *Config) ConfigValue(_ context.Context, name string) (string, error) {
	if v, ok := cfg.Values[name]; ok {
		return v, nil
	}
	switch name {
	case "commerce-store-url":
		if cfg.Commerce.StoreURL != "" {
			return cfg.Commerce.StoreURL, nil
		}
	case "commerce-core-endpoint":
		if cfg.Commerce.GraphQLEndpoint != "" {
			return cfg.Commerce.GraphQLEndpoint, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigValueNotFound, name)
}

// CheckManagementKey compares a presented key with the configured bcrypt hash.
func (cfg *Config) CheckManagementKey(key string) bool {
	hash := cfg.RemoteManagement.SecretKey
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// looksLikeBcrypt returns true if the provided string appears to be a bcrypt hash.
func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// NormalizeHeaders trims header keys and values and removes empty pairs.
func NormalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	clean := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		clean[key] = val
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

// hashSecret hashes the given secret using bcrypt.
func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// SaveConfigUpdateNestedScalar updates a nested scalar in the YAML file while
// preserving comments and ordering of everything else.
func SaveConfigUpdateNestedScalar(configFile string, path []string, value string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var root yaml.Node
	if err = yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid yaml document structure")
	}
	node := root.Content[0]
	for i, key := range path {
		if i == len(path)-1 {
			v := getOrCreateMapValue(node, key)
			v.Kind = yaml.ScalarNode
			v.Tag = "!!str"
			v.Value = value
		} else {
			next := getOrCreateMapValue(node, key)
			if next.Kind != yaml.MappingNode {
				next.Kind = yaml.MappingNode
				next.Tag = "!!map"
			}
			node = next
		}
	}
	out, err := yaml.Marshal(&root)
	if err != nil {
		return err
	}
	info, err := os.Stat(configFile)
	if err != nil {
		return err
	}
	return os.WriteFile(configFile, out, info.Mode().Perm())
}

// getOrCreateMapValue finds the value node for a given key in a mapping node.
// If not found, it appends a new key/value pair and returns the new value node.
func getOrCreateMapValue(mapNode *yaml.Node, key string) *yaml.Node {
	if mapNode.Kind != yaml.MappingNode {
		mapNode.Kind = yaml.MappingNode
		mapNode.Tag = "!!map"
		mapNode.Content = nil
	}
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		k := mapNode.Content[i]
		if k.Value == key {
			return mapNode.Content[i+1]
		}
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	v := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
	mapNode.Content = append(mapNode.Content, k, v)
	return v
}
