// Package secrets resolves database credentials from environment variables and
// file-based secrets (Docker/Kubernetes secrets). Secret values are never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
)

const (
	// maxSecretFileSize limits secret file reads, secrets are passwords not files
	maxSecretFileSize = 64 * 1024

	mysqlScheme = "mysql://"
)

// GetLogger returns the secrets module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("secrets")
}

// ExpandString resolves ${VAR} and ${VAR:-default} references.
//
//   - "literal" -> "literal"
//   - "${DB_PASS}" -> value of DB_PASS
//   - "${DB_PASS:-colmap}" -> value of DB_PASS or "colmap" if not set
//
// A reference to an unset variable without a default is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missingVars []string

	expanded := os.Expand(s, func(key string) string {
		varName := key
		defaultValue := ""
		fallbackProvided := false

		if idx := strings.Index(key, ":-"); idx != -1 {
			varName = key[:idx]
			defaultValue = key[idx+2:]
			fallbackProvided = true
		}

		value := os.Getenv(varName)
		if value == "" {
			if fallbackProvided {
				return defaultValue
			}
			missingVars = append(missingVars, varName)
			return ""
		}
		return value
	})

	if len(missingVars) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missingVars, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return expanded, nil
}

// ReadFile reads a secret from a file path. Only trailing newlines are trimmed.
// Files readable by group or other are accepted with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", secretError(fmt.Errorf("secret file path is empty"), path)
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", secretError(fmt.Errorf("secret file not found: %s", cleanPath), cleanPath)
		}
		return "", secretError(fmt.Errorf("failed to stat secret file %s: %w", cleanPath, err), cleanPath)
	}

	if !info.Mode().IsRegular() {
		return "", secretError(fmt.Errorf("secret path is not a regular file: %s", cleanPath), cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", secretError(fmt.Errorf("secret file too large (max %d bytes): %s", maxSecretFileSize, cleanPath), cleanPath)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		GetLogger().Warn("secret file has group/other permissions",
			logger.String("path", cleanPath),
			logger.String("perms", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", secretError(fmt.Errorf("failed to read secret file %s: %w", cleanPath, err), cleanPath)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError(fmt.Errorf("secret file is empty: %s", cleanPath), cleanPath)
	}

	return secret, nil
}

// ResolveDatabasePath expands environment references in a database location and,
// when passwordFile is set, installs the password read from it into the mysql://
// location, replacing any inline password.
func ResolveDatabasePath(location, passwordFile string) (string, error) {
	expanded, err := ExpandString(location)
	if err != nil {
		return "", err
	}
	if passwordFile == "" {
		return expanded, nil
	}

	if !strings.HasPrefix(expanded, mysqlScheme) {
		return "", errors.Newf("a database password file requires a %s location", mysqlScheme).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	rest := strings.TrimPrefix(expanded, mysqlScheme)
	at := strings.LastIndex(rest, "@")
	if at <= 0 {
		return "", errors.Newf("a database password file requires a user in the %s location", mysqlScheme).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	user, _, _ := strings.Cut(rest[:at], ":")

	password, err := ReadFile(passwordFile)
	if err != nil {
		return "", err
	}
	return mysqlScheme + user + ":" + password + rest[at:], nil
}

func secretError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		FileContext(path).
		Build()
}
