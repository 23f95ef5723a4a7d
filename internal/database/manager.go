package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	dbconfig "tumorboard/pkg/database"
	"tumorboard/pkg/interfaces"
	"tumorboard/pkg/types"
)

// Manager implements the CaseStore interface over SQLite.
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

// writeOperation represents a database write operation.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the case registry database and ensures its schema.
func NewManager(config *dbconfig.Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// FUNCTIONAL DISCOVERY: Connection pool configuration critical for
	// concurrent reads (case lookups happen on every room join)
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	if err := dbconfig.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	// ARCHITECTURAL DISCOVERY: Single-writer goroutine prevents SQLite
	// write contention
	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine.
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := op.operation(m.db)
			if err != nil {
				log.Printf("Case registry write failed, retrying in 5 seconds: %v", err)
				time.Sleep(5 * time.Second)
				err = op.operation(m.db) // Retry once
				if err != nil {
					log.Printf("Case registry write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-m.shutdown:
			log.Println("Case registry write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion.
func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("case registry is closed")
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-m.shutdown:
		return fmt.Errorf("case registry is shutting down")
	}
}

// CreateCase persists a new imaging case. A server-side UUID is assigned
// when the caller did not provide an ID.
func (m *Manager) CreateCase(ctx context.Context, c *types.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	err := m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO cases (id, title, modality, description, axial_slices, sagittal_slices, coronal_slices, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.Modality, c.Description,
			c.AxialSlices, c.SagittalSlices, c.CoronalSlices, c.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	log.Printf("Case registered: id=%s modality=%s title=%q", c.ID, c.Modality, c.Title)
	return nil
}

// GetCase retrieves a case by ID.
func (m *Manager) GetCase(ctx context.Context, caseID string) (*types.Case, error) {
	var c types.Case
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, modality, description, axial_slices, sagittal_slices, coronal_slices, created_at
		FROM cases WHERE id = ?`, caseID).Scan(
		&c.ID, &c.Title, &c.Modality, &c.Description,
		&c.AxialSlices, &c.SagittalSlices, &c.CoronalSlices, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &c, nil
}

// ListCases returns all registered cases, newest first.
func (m *Manager) ListCases(ctx context.Context) ([]*types.Case, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, modality, description, axial_slices, sagittal_slices, coronal_slices, created_at
		FROM cases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*types.Case
	for rows.Next() {
		var c types.Case
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Modality, &c.Description,
			&c.AxialSlices, &c.SagittalSlices, &c.CoronalSlices, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, &c)
	}
	return cases, rows.Err()
}

// HealthCheck verifies the database is reachable.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close shuts down the write loop and closes the database.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()
	return m.db.Close()
}
