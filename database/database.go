package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/40acres/lngateway/database/models"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "github.com/lib/pq"
)

const EmbeddedHost = "embedded"

var ErrOrderNotFound = errors.New("order not found")

type Database struct {
	host       string
	username   string
	password   string
	database   string
	port       uint32
	dataPath   string
	connection *embeddedpostgres.EmbeddedPostgres
	orm        *gorm.DB
}

// NewDatabase connects to postgres. When host is "embedded" a local postgres
// is started under dataPath first; the returned close function stops it
// unless keepAlive is set.
func NewDatabase(username, password, database string, port uint32, dataPath, host string, keepAlive bool) (*Database, func() error, error) {
	db := &Database{
		host:     host,
		username: username,
		password: password,
		database: database,
		port:     port,
		dataPath: dataPath,
	}

	if db.isEmbedded() {
		if err := db.startEmbedded(); err != nil {
			return nil, nil, err
		}
	}

	orm, err := gorm.Open(postgres.Open(db.GetConnectionURL()), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		db.stopEmbedded()

		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.orm = orm

	closeDb := func() error {
		sqlDB, err := db.orm.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Close(); err != nil {
			return err
		}
		if db.isEmbedded() && !keepAlive {
			return db.connection.Stop()
		}

		return nil
	}

	return db, closeDb, nil
}

// Open wraps an already configured dialector, used for sqlite in tests and
// tooling.
func Open(dialector gorm.Dialector) (*Database, error) {
	orm, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{orm: orm}, nil
}

func (d *Database) isEmbedded() bool {
	return d.host == EmbeddedHost
}

func (d *Database) GetConnectionURL() string {
	host := d.host
	if d.isEmbedded() {
		host = "localhost"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.username, d.password, host, d.port, d.database)
}

func (d *Database) startEmbedded() error {
	d.connection = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Username(d.username).
			Password(d.password).
			Database(d.database).
			Port(d.port).
			DataPath(filepath.Join(d.dataPath, "data")).
			RuntimePath(filepath.Join(d.dataPath, "runtime")).
			BinariesPath(filepath.Join(d.dataPath, "bin")),
	)
	if err := d.connection.Start(); err != nil {
		return fmt.Errorf("error starting database: %w", err)
	}

	log.Info("✅ DB started")

	return nil
}

func (d *Database) stopEmbedded() {
	if d.connection == nil {
		return
	}
	if err := d.connection.Stop(); err != nil {
		log.WithError(err).Error("error stopping database")
	}
}

func (d *Database) ORM() *gorm.DB {
	return d.orm
}

// MigrateDatabase creates or updates the tables of all models.
func (d *Database) MigrateDatabase() error {
	if err := d.orm.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("error migrating models: %w", err)
	}

	return nil
}

// Reset drops every table and migrates again.
func (d *Database) Reset() error {
	if err := d.orm.Migrator().DropTable(Models()...); err != nil {
		return fmt.Errorf("error dropping tables: %w", err)
	}

	return d.MigrateDatabase()
}

// Models lists the models managed by the database, in creation order.
func Models() []interface{} {
	return []interface{}{&models.Order{}, &models.OrderNote{}}
}
