package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when no device has the requested mac
	ErrNotFound = errors.New("device not found")

	// ErrDuplicate is returned when a device with the same mac already exists
	ErrDuplicate = errors.New("device already exists")
)

// Device is a registered TRMNL device
type Device struct {
	MAC         string `json:"mac" validate:"required,mac"`
	APIKey      string `json:"api_key" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// Global validator instance, reporting fields by their json names
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidationError represents a field-level validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements the error interface for ValidationErrors
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validate checks a device payload
func (d *Device) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationErrors{}
	for _, e := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: formatValidationMessage(e),
		})
	}
	return out
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "mac":
		return fmt.Sprintf("%s must be a valid MAC address", e.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag())
	}
}

// DeviceStore persists devices in SQLite
type DeviceStore struct {
	db *sql.DB
}

// NewDeviceStore creates a device store on an open, migrated database
func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

// List returns every device ordered by mac
func (s *DeviceStore) List(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mac, api_key, description FROM devices ORDER BY mac`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.MAC, &d.APIKey, &d.Description); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Create inserts a device
func (s *DeviceStore) Create(ctx context.Context, d Device) (*Device, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (mac, api_key, description) VALUES (?, ?, ?)`,
		d.MAC, d.APIKey, d.Description,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, d.MAC)
		}
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return &d, nil
}

// Update replaces the api key and description of the device with the given mac
func (s *DeviceStore) Update(ctx context.Context, mac string, d Device) (*Device, error) {
	d.MAC = mac
	if err := d.Validate(); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET api_key = ?, description = ? WHERE mac = ?`,
		d.APIKey, d.Description, mac,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update device: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes the device with the given mac
func (s *DeviceStore) Delete(ctx context.Context, mac string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE mac = ?`, mac)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return requireAffected(res)
}

// GetByAPIKey looks a device up by its access token
func (s *DeviceStore) GetByAPIKey(ctx context.Context, apiKey string) (*Device, error) {
	var d Device
	err := s.db.QueryRowContext(ctx,
		`SELECT mac, api_key, description FROM devices WHERE api_key = ? LIMIT 1`, apiKey,
	).Scan(&d.MAC, &d.APIKey, &d.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &d, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// extended codes carry the primary code in the low byte
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
