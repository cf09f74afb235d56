package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jasperwreed/guidera-chat/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the session credential and the chat history in one
// file. It satisfies session.Backend through Get, Set and Delete.
type SQLiteStore struct {
	writeDB *sql.DB // Single connection for writes
	readDB  *sql.DB // Pool of connections for reads
	dbPath  string
}

// MessageFilter narrows list and search queries. Zero values match
// everything; pending placeholders are excluded unless asked for.
type MessageFilter struct {
	Role           models.Role
	Model          string
	Status         models.ComplianceStatus
	IncludePending bool
}

func (f MessageFilter) clause() (string, []any) {
	var conds []string
	var args []any
	if !f.IncludePending {
		conds = append(conds, "m.pending = 0")
	}
	if f.Role != "" {
		conds = append(conds, "m.role = ?")
		args = append(args, string(f.Role))
	}
	if f.Model != "" {
		conds = append(conds, "m.model = ?")
		args = append(args, f.Model)
	}
	if f.Status != "" {
		conds = append(conds, "m.compliance_status = ?")
		args = append(args, string(f.Status))
	}
	return strings.Join(conds, " AND "), args
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return Open(DefaultConfig(dbPath))
}

func Open(cfg *Config) (*SQLiteStore, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".guidera", "guidera.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	// The read pool is opened read-write: the file may not exist until the
	// writer creates the schema.
	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(cfg.MaxReadConns)
	readDB.SetMaxIdleConns(cfg.MaxReadConns)

	store := &SQLiteStore{
		writeDB: writeDB,
		readDB:  readDB,
		dbPath:  dbPath,
	}

	for _, pragma := range cfg.pragmas() {
		if _, err := writeDB.Exec(pragma); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	if err := store.createTables(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) createTables() error {
	queries := []string{
		queryCreateKVTable,
		queryCreateMessagesTable,
		queryCreateIndexMessagesRole,
		queryCreateIndexMessagesModel,
		queryCreateIndexMessagesStatus,
		queryCreateMessagesFTS,
		queryCreateMessagesInsertTrigger,
		queryCreateMessagesDeleteTrigger,
		queryCreateMessagesUpdateTrigger,
	}

	for _, query := range queries {
		if _, err := s.writeDB.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.readDB.QueryRow(queryGetKV, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	if _, err := s.writeDB.Exec(querySetKV, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.writeDB.Exec(queryDeleteKV, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// SaveMessage inserts msg, or updates the stored row with the same id in
// place so its position in the history is kept.
func (s *SQLiteStore) SaveMessage(msg models.Message) error {
	return upsertMessage(s.writeDB, msg)
}

// SyncMessages makes the stored history equal to msgs: rows are upserted
// in order and stored messages missing from msgs are deleted.
func (s *SQLiteStore) SyncMessages(msgs []models.Message) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	keep := make(map[string]bool, len(msgs))
	for _, msg := range msgs {
		keep[msg.ID] = true
		if err := upsertMessage(tx, msg); err != nil {
			return err
		}
	}

	rows, err := tx.Query(querySelectMessageID)
	if err != nil {
		return fmt.Errorf("failed to list stored messages: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.Exec(queryDeleteMessage, id); err != nil {
			return fmt.Errorf("failed to delete message %s: %w", id, err)
		}
	}

	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertMessage(db execer, msg models.Message) error {
	var costSaved sql.NullFloat64
	if msg.PerformanceMetrics != nil {
		costSaved = sql.NullFloat64{Float64: msg.PerformanceMetrics.CostSaved, Valid: true}
	}
	var status string
	if msg.ComplianceCheck != nil {
		status = string(msg.ComplianceCheck.Status)
	}

	_, err := db.Exec(
		queryUpsertMessage,
		msg.ID, string(msg.Role), msg.Content, msg.Timestamp.UnixNano(), msg.Pending,
		string(msg.Kind), msg.Model, costSaved, status,
		marshalOptional(msg.PerformanceMetrics),
		marshalOptional(msg.PlagiarismCheck),
		marshalOptional(msg.ComplianceCheck),
	)
	if err != nil {
		return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
	}
	return nil
}

// GetMessage returns nil, nil when no message has the id.
func (s *SQLiteStore) GetMessage(id string) (*models.Message, error) {
	msg, err := scanMessage(s.readDB.QueryRow(querySelectMessage, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns the most recent limit messages matching filter, in
// history order. A limit of zero or less returns everything.
func (s *SQLiteStore) ListMessages(limit, offset int, filter MessageFilter) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m`
	where, args := filter.clause()
	if where != "" {
		query += " WHERE " + where
	}
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY m.seq DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SearchMessages runs an FTS5 MATCH expression. Callers pass a prepared
// expression; see the search package for building one from user text.
func (s *SQLiteStore) SearchMessages(match string, limit int, filter MessageFilter) ([]models.SearchResult, error) {
	query := querySearchMessages
	where, args := filter.clause()
	args = append([]any{match}, args...)
	if where != "" {
		query += " AND " + where
	}
	if limit <= 0 {
		limit = -1
	}
	// bm25 is lower for better matches.
	query += " ORDER BY score ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var result models.SearchResult
		msg, err := scanMessage(rows, &result.Snippet, &result.Score)
		if err != nil {
			return nil, err
		}
		result.Message = msg
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) DeleteMessage(id string) error {
	_, err := s.writeDB.Exec(queryDeleteMessage, id)
	return err
}

// ClearMessages deletes the whole history and reports how many rows went.
func (s *SQLiteStore) ClearMessages() (int64, error) {
	result, err := s.writeDB.Exec(queryClearMessages)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) GetStats() (*models.HistoryStats, error) {
	stats := &models.HistoryStats{
		ModelBreakdown:  make(map[string]int),
		StatusBreakdown: make(map[models.ComplianceStatus]int),
	}

	if err := s.groupCount(queryCountByRole, func(role string, n int) {
		stats.TotalMessages += n
		switch models.Role(role) {
		case models.RoleUser:
			stats.UserMessages = n
		case models.RoleAssistant:
			stats.AssistantMessages = n
		}
	}); err != nil {
		return nil, err
	}

	if err := s.readDB.QueryRow(querySumCostSaved).Scan(&stats.TotalCostSaved); err != nil {
		return nil, err
	}

	if err := s.groupCount(queryGroupByModel, func(model string, n int) {
		stats.ModelBreakdown[model] = n
	}); err != nil {
		return nil, err
	}

	if err := s.groupCount(queryGroupByStatus, func(status string, n int) {
		stats.StatusBreakdown[models.ComplianceStatus(status)] = n
	}); err != nil {
		return nil, err
	}

	var first, last sql.NullInt64
	if err := s.readDB.QueryRow(queryTimestampRange).Scan(&first, &last); err != nil {
		return nil, err
	}
	if first.Valid {
		stats.FirstMessage = time.Unix(0, first.Int64)
	}
	if last.Valid {
		stats.LastMessage = time.Unix(0, last.Int64)
	}

	return stats, nil
}

func (s *SQLiteStore) groupCount(query string, fn func(key string, n int)) error {
	rows, err := s.readDB.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}

func (s *SQLiteStore) Close() error {
	var errs []error

	// Run PRAGMA optimize before closing for better long-term performance
	if _, err := s.writeDB.Exec("PRAGMA optimize"); err != nil {
		errs = append(errs, fmt.Errorf("failed to optimize: %w", err))
	}

	if err := s.readDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close read db: %w", err))
	}

	if err := s.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close write db: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanMessage reads messageColumns followed by any extra columns.
func scanMessage(row scanner, extra ...any) (models.Message, error) {
	var msg models.Message
	var role string
	var ts int64
	var kind, model, metrics, plagiarism, compliance sql.NullString

	dest := []any{&msg.ID, &role, &msg.Content, &ts, &msg.Pending, &kind, &model, &metrics, &plagiarism, &compliance}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Message{}, err
	}

	msg.Role = models.Role(role)
	msg.Timestamp = time.Unix(0, ts)
	msg.Kind = models.ResponseKind(kind.String)
	msg.Model = model.String
	msg.PerformanceMetrics = unmarshalOptional[models.PerformanceMetrics](metrics)
	msg.PlagiarismCheck = unmarshalOptional[models.PlagiarismCheck](plagiarism)
	msg.ComplianceCheck = unmarshalOptional[models.ComplianceCheck](compliance)
	return msg, nil
}

func marshalOptional[T any](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func unmarshalOptional[T any](s sql.NullString) *T {
	if !s.Valid || s.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil
	}
	return &v
}
