package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// DatabaseClient talks to the Supabase Postgres instance directly and
// implements store.Store.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an existing pool.
func NewDatabaseClientFromDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) conn(ctx context.Context) querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return d.db
}

func (d *DatabaseClient) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError converts driver errors into store sentinels.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", what, store.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", what, store.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const applicationColumns = `id, reference_number, status, payment_status, payment_amount, user_email,
	application_type, application_data, owner_id, submitted_at, created_at, updated_at`

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID, &a.ReferenceNumber, &a.Status, &a.PaymentStatus, &a.PaymentAmount, &a.UserEmail,
		&a.ApplicationType, &a.ApplicationData, &a.OwnerID, &a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DatabaseClient) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	err := d.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO applications (id, reference_number, status, payment_status, payment_amount, user_email,
			application_type, application_data, submitted_at, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, app.ID, app.ReferenceNumber, app.Status, app.PaymentStatus, app.PaymentAmount, app.UserEmail,
		app.ApplicationType, app.ApplicationData, app.SubmittedAt, app.OwnerID,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	return mapError(err, "failed to create application")
}

func (d *DatabaseClient) UpdateApplication(ctx context.Context, app *models.Application) error {
	err := d.conn(ctx).QueryRowContext(ctx, `
		UPDATE applications
		SET reference_number = $2, status = $3, payment_status = $4, payment_amount = $5, user_email = $6,
			application_type = $7, application_data = $8, submitted_at = $9, owner_id = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, app.ID, app.ReferenceNumber, app.Status, app.PaymentStatus, app.PaymentAmount, app.UserEmail,
		app.ApplicationType, app.ApplicationData, app.SubmittedAt, app.OwnerID,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	return mapError(err, "failed to update application")
}

func (d *DatabaseClient) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	row := d.conn(ctx).QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		return nil, mapError(err, "failed to get application")
	}
	return app, nil
}

func (d *DatabaseClient) GetApplicationByReference(ctx context.Context, reference string) (*models.Application, error) {
	row := d.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE reference_number = $1`, reference)
	app, err := scanApplication(row)
	if err != nil {
		return nil, mapError(err, "failed to get application by reference")
	}
	return app, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const applicationFilterWhere = `
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR payment_status = $2)
	  AND ($3 = '' OR reference_number ILIKE '%' || $3 || '%' OR user_email ILIKE '%' || $3 || '%')`

func (d *DatabaseClient) ListApplications(ctx context.Context, filter store.ApplicationFilter) ([]models.Application, int, error) {
	search := likeEscaper.Replace(strings.TrimSpace(filter.Search))
	args := []any{string(filter.Status), string(filter.PaymentStatus), search}

	var total int
	if err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications`+applicationFilterWhere, args...,
	).Scan(&total); err != nil {
		return nil, 0, mapError(err, "failed to count applications")
	}

	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}
	rows, err := d.conn(ctx).QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications`+applicationFilterWhere+`
		ORDER BY created_at DESC, id
		LIMIT $4 OFFSET $5`, append(args, limit, max(filter.Offset, 0))...)
	if err != nil {
		return nil, 0, mapError(err, "failed to list applications")
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, total, rows.Err()
}

func (d *DatabaseClient) ListDraftsUpdatedBefore(ctx context.Context, before time.Time) ([]models.Application, error) {
	rows, err := d.conn(ctx).QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE status = 'draft' AND updated_at < $1 AND user_email <> ''
		ORDER BY updated_at
	`, before)
	if err != nil {
		return nil, mapError(err, "failed to list stale drafts")
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func (d *DatabaseClient) CountApplicationsByStatus(ctx context.Context, from, to *time.Time) (map[models.ApplicationStatus]int, error) {
	rows, err := d.conn(ctx).QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM applications
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		GROUP BY status
	`, from, to)
	if err != nil {
		return nil, mapError(err, "failed to count applications by status")
	}
	defer rows.Close()

	counts := make(map[models.ApplicationStatus]int)
	for rows.Next() {
		var status models.ApplicationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (d *DatabaseClient) CountApplicationsByPaymentStatus(ctx context.Context) (map[models.PaymentStatus]int, error) {
	rows, err := d.conn(ctx).QueryContext(ctx,
		`SELECT payment_status, COUNT(*) FROM applications GROUP BY payment_status`)
	if err != nil {
		return nil, mapError(err, "failed to count applications by payment status")
	}
	defer rows.Close()

	counts := make(map[models.PaymentStatus]int)
	for rows.Next() {
		var status models.PaymentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan payment status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (d *DatabaseClient) SumPaidAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(payment_amount), 0) FROM applications WHERE payment_status = 'paid'`,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err, "failed to sum paid amount")
	}
	return total, nil
}

const applicantColumns = `id, application_id, applicant_number, first_name, middle_names, last_name, date_of_birth,
	nationality, passport_number, passport_expiry, email, phone, address, job_title, job_title_translated,
	status, created_at, updated_at`

func scanApplicant(row rowScanner) (*models.Applicant, error) {
	var a models.Applicant
	err := row.Scan(
		&a.ID, &a.ApplicationID, &a.ApplicantNumber, &a.FirstName, &a.MiddleNames, &a.LastName, &a.DateOfBirth,
		&a.Nationality, &a.PassportNumber, &a.PassportExpiry, &a.Email, &a.Phone, &a.Address, &a.JobTitle,
		&a.JobTitleTranslated, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DatabaseClient) UpsertApplicant(ctx context.Context, a *models.Applicant) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := d.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO applicants (id, application_id, applicant_number, first_name, middle_names, last_name,
			date_of_birth, nationality, passport_number, passport_expiry, email, phone, address, job_title,
			job_title_translated, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (application_id, applicant_number) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			middle_names = EXCLUDED.middle_names,
			last_name = EXCLUDED.last_name,
			date_of_birth = EXCLUDED.date_of_birth,
			nationality = EXCLUDED.nationality,
			passport_number = EXCLUDED.passport_number,
			passport_expiry = EXCLUDED.passport_expiry,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			job_title = EXCLUDED.job_title,
			job_title_translated = EXCLUDED.job_title_translated,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, a.ID, a.ApplicationID, a.ApplicantNumber, a.FirstName, a.MiddleNames, a.LastName,
		a.DateOfBirth, a.Nationality, a.PassportNumber, a.PassportExpiry, a.Email, a.Phone, a.Address, a.JobTitle,
		a.JobTitleTranslated, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err, "failed to upsert applicant")
}

func (d *DatabaseClient) GetApplicant(ctx context.Context, id uuid.UUID) (*models.Applicant, error) {
	row := d.conn(ctx).QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = $1`, id)
	a, err := scanApplicant(row)
	if err != nil {
		return nil, mapError(err, "failed to get applicant")
	}
	return a, nil
}

func (d *DatabaseClient) ListApplicants(ctx context.Context, applicationID uuid.UUID) ([]models.Applicant, error) {
	rows, err := d.conn(ctx).QueryContext(ctx, `
		SELECT `+applicantColumns+`
		FROM applicants
		WHERE application_id = $1
		ORDER BY applicant_number
	`, applicationID)
	if err != nil {
		return nil, mapError(err, "failed to list applicants")
	}
	defer rows.Close()

	var applicants []models.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		applicants = append(applicants, *a)
	}
	return applicants, rows.Err()
}

func (d *DatabaseClient) UpdateApplicant(ctx context.Context, a *models.Applicant) error {
	err := d.conn(ctx).QueryRowContext(ctx, `
		UPDATE applicants SET
			applicant_number = $2,
			first_name = $3,
			middle_names = $4,
			last_name = $5,
			date_of_birth = $6,
			nationality = $7,
			passport_number = $8,
			passport_expiry = $9,
			email = $10,
			phone = $11,
			address = $12,
			job_title = $13,
			job_title_translated = $14,
			status = $15,
			updated_at = NOW()
		WHERE id = $1
		RETURNING application_id, created_at, updated_at
	`, a.ID, a.ApplicantNumber, a.FirstName, a.MiddleNames, a.LastName, a.DateOfBirth, a.Nationality,
		a.PassportNumber, a.PassportExpiry, a.Email, a.Phone, a.Address, a.JobTitle, a.JobTitleTranslated, a.Status,
	).Scan(&a.ApplicationID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err, "failed to update applicant")
}

func (d *DatabaseClient) DeleteApplicant(ctx context.Context, id uuid.UUID) error {
	if _, err := d.conn(ctx).ExecContext(ctx, `DELETE FROM documents WHERE applicant_id = $1`, id); err != nil {
		return mapError(err, "failed to delete applicant documents")
	}
	res, err := d.conn(ctx).ExecContext(ctx, `DELETE FROM applicants WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "failed to delete applicant")
	}
	return requireAffected(res, "applicant")
}

func (d *DatabaseClient) UpdateApplicantStatus(ctx context.Context, id uuid.UUID, status models.ApplicantStatus) error {
	res, err := d.conn(ctx).ExecContext(ctx,
		`UPDATE applicants SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return mapError(err, "failed to update applicant status")
	}
	return requireAffected(res, "applicant")
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

const documentColumns = `id, application_id, applicant_id, document_type, file_name, bucket, storage_path,
	mime_type, file_size, verification_status, metadata, verified_by, verified_at, created_at, updated_at`

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID, &doc.ApplicationID, &doc.ApplicantID, &doc.DocumentType, &doc.FileName, &doc.Bucket,
		&doc.StoragePath, &doc.MimeType, &doc.FileSize, &doc.VerificationStatus, &doc.Metadata,
		&doc.VerifiedBy, &doc.VerifiedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	err := d.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO documents (id, application_id, applicant_id, document_type, file_name, bucket, storage_path,
			mime_type, file_size, verification_status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, doc.ID, doc.ApplicationID, doc.ApplicantID, doc.DocumentType, doc.FileName, doc.Bucket, doc.StoragePath,
		doc.MimeType, doc.FileSize, doc.VerificationStatus, doc.Metadata,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	return mapError(err, "failed to create document")
}

func (d *DatabaseClient) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	row := d.conn(ctx).QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, mapError(err, "failed to get document")
	}
	return doc, nil
}

func (d *DatabaseClient) listDocuments(ctx context.Context, column string, id uuid.UUID) ([]models.Document, error) {
	rows, err := d.conn(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+column+` = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, mapError(err, "failed to list documents")
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (d *DatabaseClient) ListDocumentsByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Document, error) {
	return d.listDocuments(ctx, "application_id", applicationID)
}

func (d *DatabaseClient) ListDocumentsByApplicant(ctx context.Context, applicantID uuid.UUID) ([]models.Document, error) {
	return d.listDocuments(ctx, "applicant_id", applicantID)
}

func (d *DatabaseClient) UpdateDocumentVerification(ctx context.Context, doc *models.Document) error {
	row := d.conn(ctx).QueryRowContext(ctx, `
		UPDATE documents
		SET verification_status = $2, verified_by = $3, verified_at = $4, metadata = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+documentColumns,
		doc.ID, doc.VerificationStatus, doc.VerifiedBy, doc.VerifiedAt, doc.Metadata)
	updated, err := scanDocument(row)
	if err != nil {
		return mapError(err, "failed to update document verification")
	}
	*doc = *updated
	return nil
}

func (d *DatabaseClient) CountDocumentsByVerification(ctx context.Context, status models.VerificationStatus) (int, error) {
	var n int
	err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE verification_status = $1`, status).Scan(&n)
	if err != nil {
		return 0, mapError(err, "failed to count documents")
	}
	return n, nil
}

func (d *DatabaseClient) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := d.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO audit_logs (id, application_id, actor, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, entry.ID, entry.ApplicationID, entry.Actor, entry.Action, entry.Details).Scan(&entry.CreatedAt)
	return mapError(err, "failed to create audit log")
}

func (d *DatabaseClient) ListAuditLogs(ctx context.Context, applicationID uuid.UUID) ([]models.AuditLog, error) {
	rows, err := d.conn(ctx).QueryContext(ctx, `
		SELECT id, application_id, actor, action, details, created_at
		FROM audit_logs
		WHERE application_id = $1
		ORDER BY created_at
	`, applicationID)
	if err != nil {
		return nil, mapError(err, "failed to list audit logs")
	}
	defer rows.Close()

	var entries []models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.Actor, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const paymentColumns = `id, application_id, order_id, amount, currency, status, provider,
	provider_transaction_id, provider_status, created_at, updated_at`

func (d *DatabaseClient) CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	err := d.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO payment_transactions (id, application_id, order_id, amount, currency, status, provider,
			provider_transaction_id, provider_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, txn.ID, txn.ApplicationID, txn.OrderID, txn.Amount, txn.Currency, txn.Status, txn.Provider,
		txn.ProviderTransactionID, txn.ProviderStatus,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	return mapError(err, "failed to create payment transaction")
}

func (d *DatabaseClient) GetPaymentTransactionByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_transactions WHERE order_id = $1`, orderID,
	).Scan(&t.ID, &t.ApplicationID, &t.OrderID, &t.Amount, &t.Currency, &t.Status, &t.Provider,
		&t.ProviderTransactionID, &t.ProviderStatus, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "failed to get payment transaction")
	}
	return &t, nil
}

func (d *DatabaseClient) UpdatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	err := d.conn(ctx).QueryRowContext(ctx, `
		UPDATE payment_transactions
		SET status = $2, provider_transaction_id = $3, provider_status = $4, updated_at = NOW()
		WHERE order_id = $1
		RETURNING id, created_at, updated_at
	`, txn.OrderID, txn.Status, txn.ProviderTransactionID, txn.ProviderStatus,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	return mapError(err, "failed to update payment transaction")
}

func (d *DatabaseClient) ListPaymentTransactions(ctx context.Context, applicationID uuid.UUID) ([]models.PaymentTransaction, error) {
	rows, err := d.conn(ctx).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_transactions WHERE application_id = $1 ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, mapError(err, "failed to list payment transactions")
	}
	defer rows.Close()

	var txns []models.PaymentTransaction
	for rows.Next() {
		var t models.PaymentTransaction
		if err := rows.Scan(&t.ID, &t.ApplicationID, &t.OrderID, &t.Amount, &t.Currency, &t.Status, &t.Provider,
			&t.ProviderTransactionID, &t.ProviderStatus, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (d *DatabaseClient) GetAdminUserByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var u models.AdminUser
	err := d.conn(ctx).QueryRowContext(ctx, `
		SELECT id, email, role, preferences, created_at
		FROM admin_users
		WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.Role, &u.Preferences, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err, "failed to get admin user")
	}
	return &u, nil
}

var _ store.Store = (*DatabaseClient)(nil)
