package config

import (
	"errors"
	"fmt"
	"strings"
)

func (c *Config) validate() error {
	var errs []error

	if c.Address == "" || c.ShutdownTimeout <= 0 {
		errs = append(errs, ErrInvalidServerConfigs)
	}

	if c.DatabaseURL == "" {
		errs = append(errs, ErrInvalidStorageConfigs)
	}

	if err := c.Uploads.validate(c.MinIO); err != nil {
		errs = append(errs, err)
	}

	if c.Session.Duration <= 0 || c.Session.RememberDuration <= 0 {
		errs = append(errs, ErrInvalidSessionConfigs)
	}

	return errors.Join(errs...)
}

func (u *Uploads) validate(m MinIO) error {
	if u.MaxContentLength <= 0 {
		return fmt.Errorf("%w: max content length must be positive", ErrInvalidUploadConfigs)
	}

	exts := u.AllowedExtensions[:0]
	for _, ext := range u.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	u.AllowedExtensions = exts
	if len(u.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: no allowed extensions", ErrInvalidUploadConfigs)
	}

	switch u.Backend {
	case BackendLocal:
		if u.Folder == "" {
			return fmt.Errorf("%w: upload folder is empty", ErrInvalidUploadConfigs)
		}
	case BackendMinIO:
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return fmt.Errorf("%w: incomplete minio settings", ErrInvalidUploadConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown asset backend %q", ErrInvalidUploadConfigs, u.Backend)
	}

	return nil
}
