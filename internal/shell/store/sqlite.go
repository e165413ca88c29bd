package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// One connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Deployment Operations
// =============================================================================

// deploymentRow represents a deployment row in the database.
type deploymentRow struct {
	ID        string `db:"id"`
	MissionID string `db:"mission_id"`
	Steps     string `db:"steps"`
	Status    string `db:"status"`
	Feedbacks string `db:"feedbacks"`
	Deleted   bool   `db:"deleted"`
	Version   int64  `db:"version"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *SQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) AppendFeedback(ctx context.Context, id string, feedback domain.Feedback) error {
	return appendFeedback(ctx, s.db, id, feedback)
}

func (s *SQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	return deleteDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) ListDeployments(ctx context.Context, filter DeploymentFilter, opts ListOptions) ([]domain.Deployment, error) {
	return listDeployments(ctx, s.db, filter, opts)
}

func (s *SQLiteStore) ListDeploymentStatuses(ctx context.Context) ([]domain.StepStatus, error) {
	return listDeploymentStatuses(ctx, s.db)
}

// =============================================================================
// Template Operations
// =============================================================================

// templateRow represents a template row in the database.
type templateRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	Type           string `db:"type"`
	Commander      string `db:"commander"`
	TargetLocation string `db:"target_location"`
	Units          string `db:"units"`
	Equipments     string `db:"equipments"`
	Description    string `db:"description"`
	Attributes     string `db:"attributes"`
	Status         string `db:"status"`
	CurrentStep    int    `db:"current_step"`
	StepsTotal     int    `db:"steps_total"`
	StepsCompleted string `db:"steps_completed"`
	Logs           string `db:"logs"`
	Error          string `db:"error"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, template *domain.Template) error {
	return createTemplate(ctx, s.db, template)
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return getTemplate(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	return updateTemplate(ctx, s.db, template)
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	return deleteTemplate(ctx, s.db, id)
}

func (s *SQLiteStore) ListTemplates(ctx context.Context, filter TemplateFilter, opts ListOptions) ([]domain.Template, error) {
	return listTemplates(ctx, s.db, filter, opts)
}

func (s *SQLiteStore) ListTemplateTypes(ctx context.Context) ([]string, error) {
	return listTemplateTypes(ctx, s.db)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) AppendFeedback(ctx context.Context, id string, feedback domain.Feedback) error {
	return appendFeedback(ctx, s.tx, id, feedback)
}

func (s *txSQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	return deleteDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListDeployments(ctx context.Context, filter DeploymentFilter, opts ListOptions) ([]domain.Deployment, error) {
	return listDeployments(ctx, s.tx, filter, opts)
}

func (s *txSQLiteStore) ListDeploymentStatuses(ctx context.Context) ([]domain.StepStatus, error) {
	return listDeploymentStatuses(ctx, s.tx)
}

func (s *txSQLiteStore) CreateTemplate(ctx context.Context, template *domain.Template) error {
	return createTemplate(ctx, s.tx, template)
}

func (s *txSQLiteStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return getTemplate(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	return updateTemplate(ctx, s.tx, template)
}

func (s *txSQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	return deleteTemplate(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListTemplates(ctx context.Context, filter TemplateFilter, opts ListOptions) ([]domain.Template, error) {
	return listTemplates(ctx, s.tx, filter, opts)
}

func (s *txSQLiteStore) ListTemplateTypes(ctx context.Context) ([]string, error) {
	return listTemplateTypes(ctx, s.tx)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions - Deployments
// =============================================================================

func createDeployment(ctx context.Context, exec executor, deployment *domain.Deployment) error {
	stepsJSON, err := json.Marshal(nonNilSteps(deployment.Steps))
	if err != nil {
		return NewStoreError("CreateDeployment", "deployment", deployment.ID, "failed to serialize steps", ErrInvalidData)
	}
	feedbacksJSON, err := json.Marshal(nonNilFeedbacks(deployment.Feedbacks))
	if err != nil {
		return NewStoreError("CreateDeployment", "deployment", deployment.ID, "failed to serialize feedbacks", ErrInvalidData)
	}
	if deployment.Version == 0 {
		deployment.Version = 1
	}

	query := `
		INSERT INTO deployments (
			id, mission_id, steps, status, feedbacks, deleted, version,
			created_at, updated_at
		) VALUES (
			:id, :mission_id, :steps, :status, :feedbacks, 0, :version,
			:created_at, :updated_at
		)`

	row := map[string]any{
		"id":         deployment.ID,
		"mission_id": deployment.MissionID,
		"steps":      string(stepsJSON),
		"status":     string(deployment.Status),
		"feedbacks":  string(feedbacksJSON),
		"version":    deployment.Version,
		"created_at": formatTime(deployment.CreatedAt),
		"updated_at": formatTime(deployment.UpdatedAt),
	}

	_, err = exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("CreateDeployment", "deployment", deployment.ID, "deployment with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateDeployment", "deployment", deployment.ID, err.Error(), err)
	}

	return nil
}

func getDeployment(ctx context.Context, exec executor, id string) (*domain.Deployment, error) {
	query := `SELECT * FROM deployments WHERE id = ? AND deleted = 0`

	var row deploymentRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", "deployment", id, "deployment not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", "deployment", id, err.Error(), err)
	}

	return rowToDeployment(&row)
}

func updateDeployment(ctx context.Context, exec executor, deployment *domain.Deployment) error {
	stepsJSON, err := json.Marshal(nonNilSteps(deployment.Steps))
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, "failed to serialize steps", ErrInvalidData)
	}
	feedbacksJSON, err := json.Marshal(nonNilFeedbacks(deployment.Feedbacks))
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, "failed to serialize feedbacks", ErrInvalidData)
	}

	query := `
		UPDATE deployments SET
			mission_id = :mission_id,
			steps = :steps,
			status = :status,
			feedbacks = :feedbacks,
			version = version + 1,
			updated_at = :updated_at
		WHERE id = :id AND version = :version AND deleted = 0`

	row := map[string]any{
		"id":         deployment.ID,
		"mission_id": deployment.MissionID,
		"steps":      string(stepsJSON),
		"status":     string(deployment.Status),
		"feedbacks":  string(feedbacksJSON),
		"version":    deployment.Version,
		"updated_at": formatTime(deployment.UpdatedAt),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		if _, getErr := getDeployment(ctx, exec, deployment.ID); getErr != nil {
			return NewStoreError("UpdateDeployment", "deployment", deployment.ID, "deployment not found", ErrNotFound)
		}
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID,
			fmt.Sprintf("version %d is stale", deployment.Version), ErrConflict)
	}

	deployment.Version++
	return nil
}

func appendFeedback(ctx context.Context, exec executor, id string, feedback domain.Feedback) error {
	feedbackJSON, err := json.Marshal(feedback)
	if err != nil {
		return NewStoreError("AppendFeedback", "deployment", id, "failed to serialize feedback", ErrInvalidData)
	}

	query := `
		UPDATE deployments SET
			feedbacks = json_insert(feedbacks, '$[#]', json(?)),
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND deleted = 0`

	result, err := exec.ExecContext(ctx, query, string(feedbackJSON), formatTime(feedback.CreatedAt), id)
	if err != nil {
		return NewStoreError("AppendFeedback", "deployment", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("AppendFeedback", "deployment", id, "deployment not found", ErrNotFound)
	}

	return nil
}

func deleteDeployment(ctx context.Context, exec executor, id string) error {
	query := `
		UPDATE deployments SET deleted = 1, version = version + 1, updated_at = ?
		WHERE id = ? AND deleted = 0`

	result, err := exec.ExecContext(ctx, query, formatTime(time.Now()), id)
	if err != nil {
		return NewStoreError("DeleteDeployment", "deployment", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteDeployment", "deployment", id, "deployment not found", ErrNotFound)
	}

	return nil
}

func listDeployments(ctx context.Context, exec executor, filter DeploymentFilter, opts ListOptions) ([]domain.Deployment, error) {
	opts = opts.Normalize()

	clauses := []string{"deleted = 0"}
	args := []any{}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.MissionID != "" {
		clauses = append(clauses, "mission_id = ?")
		args = append(args, filter.MissionID)
	}
	args = append(args, opts.Limit, opts.Offset)

	query := `SELECT * FROM deployments WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	var rows []deploymentRow
	err := exec.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, NewStoreError("ListDeployments", "deployment", "", err.Error(), err)
	}

	deployments := make([]domain.Deployment, 0, len(rows))
	for _, row := range rows {
		deployment, err := rowToDeployment(&row)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *deployment)
	}

	return deployments, nil
}

func listDeploymentStatuses(ctx context.Context, exec executor) ([]domain.StepStatus, error) {
	query := `SELECT DISTINCT status FROM deployments WHERE deleted = 0 ORDER BY status`

	var statuses []string
	if err := exec.SelectContext(ctx, &statuses, query); err != nil {
		return nil, NewStoreError("ListDeploymentStatuses", "deployment", "", err.Error(), err)
	}

	out := make([]domain.StepStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, domain.StepStatus(s))
	}
	return out, nil
}

// =============================================================================
// Shared Implementation Functions - Templates
// =============================================================================

func templateToRow(op string, template *domain.Template) (map[string]any, error) {
	encode := func(field string, v any) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", NewStoreError(op, "template", template.ID, "failed to serialize "+field, ErrInvalidData)
		}
		return string(data), nil
	}

	attrs := template.Attributes
	if attrs == nil {
		attrs = workflow.Attributes{}
	}
	fields := []struct {
		name  string
		value any
	}{
		{"units", nonNilStrings(template.Units)},
		{"equipments", nonNilStrings(template.Equipments)},
		{"attributes", attrs},
		{"steps_completed", nonNilInts(template.StepsCompleted)},
		{"logs", nonNilLogs(template.Logs)},
	}

	row := map[string]any{
		"id":              template.ID,
		"name":            template.Name,
		"type":            string(template.Type),
		"commander":       template.Commander,
		"target_location": template.TargetLocation,
		"description":     template.Description,
		"status":          string(template.Status),
		"current_step":    template.CurrentStep,
		"steps_total":     template.StepsTotal,
		"error":           template.Error,
		"created_at":      formatTime(template.CreatedAt),
		"updated_at":      formatTime(template.UpdatedAt),
	}
	for _, f := range fields {
		encoded, err := encode(f.name, f.value)
		if err != nil {
			return nil, err
		}
		row[f.name] = encoded
	}
	return row, nil
}

func createTemplate(ctx context.Context, exec executor, template *domain.Template) error {
	row, err := templateToRow("CreateTemplate", template)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO templates (
			id, name, type, commander, target_location, units, equipments,
			description, attributes, status, current_step, steps_total,
			steps_completed, logs, error, created_at, updated_at
		) VALUES (
			:id, :name, :type, :commander, :target_location, :units, :equipments,
			:description, :attributes, :status, :current_step, :steps_total,
			:steps_completed, :logs, :error, :created_at, :updated_at
		)`

	_, err = exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: templates.id") {
			return NewStoreError("CreateTemplate", "template", template.ID, "template with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateTemplate", "template", template.ID, err.Error(), err)
	}

	return nil
}

func getTemplate(ctx context.Context, exec executor, id string) (*domain.Template, error) {
	query := `SELECT * FROM templates WHERE id = ?`

	var row templateRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetTemplate", "template", id, "template not found", ErrNotFound)
		}
		return nil, NewStoreError("GetTemplate", "template", id, err.Error(), err)
	}

	return rowToTemplate(&row)
}

func updateTemplate(ctx context.Context, exec executor, template *domain.Template) error {
	row, err := templateToRow("UpdateTemplate", template)
	if err != nil {
		return err
	}

	query := `
		UPDATE templates SET
			name = :name,
			type = :type,
			commander = :commander,
			target_location = :target_location,
			units = :units,
			equipments = :equipments,
			description = :description,
			attributes = :attributes,
			status = :status,
			current_step = :current_step,
			steps_total = :steps_total,
			steps_completed = :steps_completed,
			logs = :logs,
			error = :error,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateTemplate", "template", template.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateTemplate", "template", template.ID, "template not found", ErrNotFound)
	}

	return nil
}

func deleteTemplate(ctx context.Context, exec executor, id string) error {
	query := `DELETE FROM templates WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return NewStoreError("DeleteTemplate", "template", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteTemplate", "template", id, "template not found", ErrNotFound)
	}

	return nil
}

func listTemplates(ctx context.Context, exec executor, filter TemplateFilter, opts ListOptions) ([]domain.Template, error) {
	opts = opts.Normalize()

	clauses := []string{"1 = 1"}
	args := []any{}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	args = append(args, opts.Limit, opts.Offset)

	query := `SELECT * FROM templates WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	var rows []templateRow
	err := exec.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, NewStoreError("ListTemplates", "template", "", err.Error(), err)
	}

	templates := make([]domain.Template, 0, len(rows))
	for _, row := range rows {
		template, err := rowToTemplate(&row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}

	return templates, nil
}

func listTemplateTypes(ctx context.Context, exec executor) ([]string, error) {
	query := `SELECT DISTINCT type FROM templates ORDER BY type`

	var types []string
	if err := exec.SelectContext(ctx, &types, query); err != nil {
		return nil, NewStoreError("ListTemplateTypes", "template", "", err.Error(), err)
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func rowToDeployment(row *deploymentRow) (*domain.Deployment, error) {
	deployment := &domain.Deployment{
		ID:        row.ID,
		MissionID: row.MissionID,
		Status:    domain.StepStatus(row.Status),
		Deleted:   row.Deleted,
		Version:   row.Version,
	}

	if err := json.Unmarshal([]byte(row.Steps), &deployment.Steps); err != nil {
		return nil, NewStoreError("rowToDeployment", "deployment", row.ID, "failed to parse steps", ErrInvalidData)
	}
	if err := json.Unmarshal([]byte(row.Feedbacks), &deployment.Feedbacks); err != nil {
		return nil, NewStoreError("rowToDeployment", "deployment", row.ID, "failed to parse feedbacks", ErrInvalidData)
	}
	deployment.Steps = nonNilSteps(deployment.Steps)
	deployment.Feedbacks = nonNilFeedbacks(deployment.Feedbacks)

	var err error
	if deployment.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, NewStoreError("rowToDeployment", "deployment", row.ID, "failed to parse created_at", ErrInvalidData)
	}
	if deployment.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, NewStoreError("rowToDeployment", "deployment", row.ID, "failed to parse updated_at", ErrInvalidData)
	}

	return deployment, nil
}

func rowToTemplate(row *templateRow) (*domain.Template, error) {
	template := &domain.Template{
		ID:             row.ID,
		Name:           row.Name,
		Type:           workflow.Type(row.Type),
		Commander:      row.Commander,
		TargetLocation: row.TargetLocation,
		Description:    row.Description,
		Status:         workflow.Status(row.Status),
		CurrentStep:    row.CurrentStep,
		StepsTotal:     row.StepsTotal,
		Error:          row.Error,
	}

	decode := []struct {
		field string
		data  string
		dest  any
	}{
		{"units", row.Units, &template.Units},
		{"equipments", row.Equipments, &template.Equipments},
		{"attributes", row.Attributes, &template.Attributes},
		{"steps_completed", row.StepsCompleted, &template.StepsCompleted},
		{"logs", row.Logs, &template.Logs},
	}
	for _, d := range decode {
		if err := json.Unmarshal([]byte(d.data), d.dest); err != nil {
			return nil, NewStoreError("rowToTemplate", "template", row.ID, "failed to parse "+d.field, ErrInvalidData)
		}
	}
	template.Units = nonNilStrings(template.Units)
	template.Equipments = nonNilStrings(template.Equipments)
	template.StepsCompleted = nonNilInts(template.StepsCompleted)
	template.Logs = nonNilLogs(template.Logs)
	if template.Attributes == nil {
		template.Attributes = workflow.Attributes{}
	}

	var err error
	if template.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, NewStoreError("rowToTemplate", "template", row.ID, "failed to parse created_at", ErrInvalidData)
	}
	if template.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, NewStoreError("rowToTemplate", "template", row.ID, "failed to parse updated_at", ErrInvalidData)
	}

	return template, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func nonNilSteps(s []domain.Step) []domain.Step {
	if s == nil {
		return []domain.Step{}
	}
	return s
}

func nonNilFeedbacks(f []domain.Feedback) []domain.Feedback {
	if f == nil {
		return []domain.Feedback{}
	}
	return f
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func nonNilLogs(l []workflow.LogEntry) []workflow.LogEntry {
	if l == nil {
		return []workflow.LogEntry{}
	}
	return l
}
