// Package recording stores simulated cache accesses in a SQLite database.
package recording

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sim"
)

// SQLiteRecorder is a sim.Tracer that writes one row per executed trace
// record into an access table and one row per run into a summary table.
// Rows are buffered and written in batches.
type SQLiteRecorder struct {
	*sql.DB
	accessStatement  *sql.Stmt
	summaryStatement *sql.Stmt

	dbName    string
	runID     string
	config    cache.Config
	events    []sim.Event
	batchSize int
}

// NewSQLiteRecorder creates <path>.sqlite3 and prepares it for recording a
// run on a cache with the given config. An empty path picks a unique name.
// The file must not exist yet.
func NewSQLiteRecorder(
	path string,
	config cache.Config,
) (*SQLiteRecorder, error) {
	r := &SQLiteRecorder{
		dbName:    path,
		runID:     xid.New().String(),
		config:    config,
		batchSize: 100000,
	}

	if err := r.init(); err != nil {
		return nil, err
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

// RunID returns the ID that tags every row of this run.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

// FileName returns the database file name.
func (r *SQLiteRecorder) FileName() string {
	return r.dbName + ".sqlite3"
}

func (r *SQLiteRecorder) init() error {
	if r.dbName == "" {
		r.dbName = "csim_" + r.runID
	}

	filename := r.FileName()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Transactions are issued as plain statements, so they must share one
	// connection.
	db.SetMaxOpenConns(1)
	r.DB = db

	if err := r.createTables(); err != nil {
		return err
	}

	return r.prepareStatements()
}

func (r *SQLiteRecorder) createTables() error {
	_, err := r.Exec(`
		create table access
		(
			run_id       varchar(20) not null,
			seq          integer     not null,
			op           varchar(1)  not null,
			address      integer     not null,
			size         integer     not null,
			set_index    integer     not null,
			tag          integer     not null,
			hits         integer     not null,
			misses       integer     not null,
			evictions    integer     not null
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create access table: %w", err)
	}

	_, err = r.Exec(`
		create index access_set_index_index
			on access (set_index);
	`)
	if err != nil {
		return fmt.Errorf("failed to create access index: %w", err)
	}

	_, err = r.Exec(`
		create table summary
		(
			run_id        varchar(20) not null,
			set_bits      integer     not null,
			lines_per_set integer     not null,
			block_bits    integer     not null,
			hits          integer     not null,
			misses        integer     not null,
			evictions     integer     not null
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create summary table: %w", err)
	}

	return nil
}

func (r *SQLiteRecorder) prepareStatements() error {
	stmt, err := r.Prepare(
		`INSERT INTO access VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare access statement: %w", err)
	}
	r.accessStatement = stmt

	stmt, err = r.Prepare(
		`INSERT INTO summary VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary statement: %w", err)
	}
	r.summaryStatement = stmt

	return nil
}

// TraceAccess buffers the event and flushes when the buffer is full.
func (r *SQLiteRecorder) TraceAccess(event sim.Event) {
	r.events = append(r.events, event)
	if len(r.events) >= r.batchSize {
		r.Flush()
	}
}

// Finish flushes the buffered events and records the run summary.
func (r *SQLiteRecorder) Finish(summary sim.Summary) {
	r.Flush()

	_, err := r.summaryStatement.Exec(
		r.runID,
		r.config.SetBits,
		r.config.LinesPerSet,
		r.config.BlockBits,
		int64(summary.Hits),
		int64(summary.Misses),
		int64(summary.Evictions),
	)
	if err != nil {
		panic(err)
	}
}

// Flush writes all the buffered events to the database.
func (r *SQLiteRecorder) Flush() {
	if len(r.events) == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for _, e := range r.events {
		var hits, misses, evictions int
		for _, res := range e.Results {
			switch {
			case res.Hit:
				hits++
			case res.Evicted:
				misses++
				evictions++
			default:
				misses++
			}
		}

		// SQLite integers are signed 64-bit; addresses and tags are stored
		// by bit pattern.
		_, err := r.accessStatement.Exec(
			r.runID,
			int64(e.Seq),
			e.Record.Op.String(),
			int64(e.Record.Addr),
			int64(e.Record.Size),
			int64(e.Fields.SetIndex),
			int64(e.Fields.Tag),
			hits,
			misses,
			evictions,
		)
		if err != nil {
			panic(err)
		}
	}

	r.events = nil
}

func (r *SQLiteRecorder) mustExecute(query string) sql.Result {
	res, err := r.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}
	return res
}
