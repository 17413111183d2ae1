package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/mysql"
	_ "github.com/golang-migrate/migrate/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/config"
	"github.com/sisu-network/proposal-relay/types"
)

const (
	saveQueueSize = 1000
)

type Database interface {
	Init() error
	Close() error

	// SaveRecord stores a record asynchronously.
	SaveRecord(record *types.LogRecord)

	// LoadRecords returns the latest records, newest first. kinds filters by record kind when
	// it is not empty.
	LoadRecords(limit int, kinds ...types.RecordKind) ([]*types.LogRecord, error)
}

type DefaultDatabase struct {
	cfg      *config.Relay
	db       *sql.DB
	saveCh   chan *types.LogRecord
	inMemory bool
}

type dbLogger struct {
}

func (loggger *dbLogger) Printf(format string, v ...interface{}) {
	log.Verbosef(strings.TrimSuffix(format, "\n"), v...)
}

func (loggger *dbLogger) Verbose() bool {
	return true
}

func NewDb(cfg *config.Relay) Database {
	return &DefaultDatabase{
		cfg:      cfg,
		saveCh:   make(chan *types.LogRecord, saveQueueSize),
		inMemory: cfg.InMemory,
	}
}

func (d *DefaultDatabase) Connect() error {
	if d.inMemory {
		database, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			return err
		}
		// Every connection of an in-memory sqlite db is a different database.
		database.SetMaxOpenConns(1)

		d.db = database
		log.Info("In-memory db is created")
		return nil
	}

	host := d.cfg.DbHost
	if host == "" {
		return fmt.Errorf("DB host cannot be empty")
	}

	port := d.cfg.DbPort
	username := d.cfg.DbUsername
	password := d.cfg.DbPassword
	schema := d.cfg.DbSchema

	// Connect to the db
	url := fmt.Sprintf("%s:%s@tcp(%s:%d)/", username, password, host, port)
	database, err := sql.Open("mysql", url)
	if err != nil {
		return err
	}
	_, err = database.Exec("CREATE DATABASE IF NOT EXISTS " + schema)
	if err != nil {
		return err
	}
	database.Close()

	database, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", username, password, host, port, schema))
	if err != nil {
		return err
	}

	d.db = database
	log.Info("Db is connected successfully")
	return nil
}

func (d *DefaultDatabase) DoMigration() error {
	if d.inMemory {
		return d.migrateInMemory()
	}

	dir, err := MigrationsTempDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	driver, err := mysql.WithInstance(d.db, &mysql.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+dir,
		"mysql",
		driver,
	)
	if err != nil {
		return err
	}

	m.Log = &dbLogger{}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// migrateInMemory applies the up migrations in version order. A fresh in-memory db never needs
// the migration history that golang-migrate keeps.
func (d *DefaultDatabase) migrateInMemory() error {
	mFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	files, err := fs.Glob(mFS, "*.up.sql")
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool {
		return migrationVersion(files[i]) < migrationVersion(files[j])
	})

	for _, file := range files {
		content, err := fs.ReadFile(mFS, file)
		if err != nil {
			return err
		}

		if _, err := d.db.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}

	return nil
}

func (d *DefaultDatabase) Init() error {
	err := d.Connect()
	if err != nil {
		log.Error("Failed to connect to DB. Err =", err)
		return err
	}

	err = d.DoMigration()
	if err != nil {
		return err
	}

	go d.listen()

	return nil
}

func (d *DefaultDatabase) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}

// Listen to request to save into datbase.
func (d *DefaultDatabase) listen() {
	for record := range d.saveCh {
		err := d.doSave(record)
		if err != nil {
			log.Error("Cannot save record into db, err = ", err)
		}
	}
}

func (d *DefaultDatabase) doSave(record *types.LogRecord) error {
	var nonce sql.NullInt64
	if record.Nonce != nil {
		nonce = sql.NullInt64{Int64: int64(*record.Nonce), Valid: true}
	}

	_, err := d.db.Exec("REPLACE INTO relay_records (id, campaign, kind, log_key, proposal_id, target, amount, tx_hash, nonce, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		record.Id, record.Campaign, string(record.Kind), record.LogKey, bigToString(record.ProposalId),
		record.Target, bigToString(record.Amount), record.TxHash, nonce, record.Message,
		record.Time.UnixNano())

	return err
}

func (d *DefaultDatabase) SaveRecord(record *types.LogRecord) {
	d.saveCh <- record
}

func (d *DefaultDatabase) LoadRecords(limit int, kinds ...types.RecordKind) ([]*types.LogRecord, error) {
	query := "SELECT id, campaign, kind, log_key, proposal_id, target, amount, tx_hash, nonce, message, created_at FROM relay_records"
	args := make([]interface{}, 0, len(kinds)+1)
	if len(kinds) > 0 {
		marks := make([]string, len(kinds))
		for i, kind := range kinds {
			marks[i] = "?"
			args = append(args, string(kind))
		}
		query += " WHERE kind IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*types.LogRecord, 0)
	for rows.Next() {
		var (
			kind                                        string
			proposalId, target, amount, txHash, message sql.NullString
			nonce                                       sql.NullInt64
			createdAt                                   int64
		)
		record := &types.LogRecord{}
		if err := rows.Scan(&record.Id, &record.Campaign, &kind, &record.LogKey, &proposalId, &target,
			&amount, &txHash, &nonce, &message, &createdAt); err != nil {
			return nil, err
		}

		record.Kind = types.RecordKind(kind)
		record.ProposalId = stringToBig(proposalId.String)
		record.Target = target.String
		record.Amount = stringToBig(amount.String)
		record.TxHash = txHash.String
		record.Message = message.String
		record.Time = time.Unix(0, createdAt)
		if nonce.Valid {
			n := uint64(nonce.Int64)
			record.Nonce = &n
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func bigToString(n *big.Int) string {
	if n == nil {
		return ""
	}

	return n.String()
}

func stringToBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}

	return n
}
