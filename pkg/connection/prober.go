package connection

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	// Drivers for reachability probes.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Prober checks that a described database is reachable with the given
// credentials before an exploration starts.
type Prober interface {
	Probe(ctx context.Context, desc Descriptor) error
}

// DriverProber probes databases by opening a real driver connection and
// pinging it.
type DriverProber struct {
	Timeout time.Duration
}

// NewDriverProber creates a prober with the default 5 second timeout.
func NewDriverProber() *DriverProber {
	return &DriverProber{Timeout: 5 * time.Second}
}

// Probe opens a short-lived connection to the described database.
func (p *DriverProber) Probe(ctx context.Context, desc Descriptor) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch desc.Kind {
	case KindPostgres:
		return p.probeSQL(ctx, "postgres", postgresDSN(desc))
	case KindMySQL:
		return p.probeSQL(ctx, "mysql", mysqlDSN(desc))
	case KindMongo:
		return p.probeMongo(ctx, desc)
	default:
		return fmt.Errorf("unsupported database type: %q", desc.Kind)
	}
}

func (p *DriverProber) probeSQL(ctx context.Context, driver, dsn string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("opening %s connection: %w", driver, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging %s database: %w", driver, err)
	}
	return nil
}

func (p *DriverProber) probeMongo(ctx context.Context, desc Descriptor) error {
	client, err := mongo.Connect(options.Client().ApplyURI(mongoURI(desc)))
	if err != nil {
		return fmt.Errorf("connecting to mongodb: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("pinging mongodb: %w", err)
	}
	return nil
}

func postgresDSN(desc Descriptor) string {
	sslmode := desc.Properties["sslmode"]
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		desc.Host, desc.Port, desc.Database, desc.Username, desc.Password, sslmode)
}

func mysqlDSN(desc Descriptor) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=5s",
		desc.Username, desc.Password, desc.Host, desc.Port, desc.Database)
}

func mongoURI(desc Descriptor) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", desc.Host, desc.Port),
		Path:   "/" + desc.Database,
	}
	if desc.Username != "" {
		u.User = url.UserPassword(desc.Username, desc.Password)
	}
	return u.String()
}
