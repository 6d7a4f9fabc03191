// Package connection manages database connection descriptors and the
// exploration lifecycle for user-supplied databases.
package connection

import (
	"fmt"
	"time"
)

// Kind identifies the database engine a descriptor points at.
type Kind string

const (
	KindPostgres Kind = "postgresql"
	KindMySQL    Kind = "mysql"
	KindMongo    Kind = "mongodb"
)

// Valid reports whether the kind is a supported engine.
func (k Kind) Valid() bool {
	switch k {
	case KindPostgres, KindMySQL, KindMongo:
		return true
	}
	return false
}

// Descriptor describes a database a user wants to explore.
type Descriptor struct {
	UserID     string            `json:"user_id" yaml:"user_id"`
	Name       string            `json:"name" yaml:"name"`
	Kind       Kind              `json:"database_type" yaml:"database_type"`
	Host       string            `json:"host" yaml:"host"`
	Port       int               `json:"port" yaml:"port"`
	Database   string            `json:"database" yaml:"database"`
	Username   string            `json:"username" yaml:"username"`
	Password   string            `json:"password" yaml:"password"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Validate checks the descriptor has everything needed to open a
// connection. Error messages name the missing field so callers can
// surface them directly.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("connection name is required")
	}
	if d.Kind == "" {
		return fmt.Errorf("database type is required")
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("unsupported database type: %q", d.Kind)
	}
	if d.Host == "" {
		return fmt.Errorf("host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", d.Port)
	}
	if d.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if d.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// Connection is a stored descriptor under active exploration.
type Connection struct {
	ID         string
	Descriptor Descriptor
	Active     bool
	CreatedAt  time.Time
	LastUsedAt time.Time
}
