package prompts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acgh213/promptvault/internal/access"
)

var (
	ErrNotFound     = errors.New("prompt not found")
	ErrSlugConflict = errors.New("slug already exists")
	ErrConflict     = errors.New("prompt has been modified")
)

type Prompt struct {
	ID                uuid.UUID
	Slug              string
	Title             string
	Summary           string
	Category          string
	Body              string // empty in List results
	RequiredTier      access.Tier
	CurrentRevisionID *uuid.UUID
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Joined fields
	Author *UserInfo
}

type Revision struct {
	ID        uuid.UUID
	PromptID  uuid.UUID
	Body      string
	Message   string
	CreatedBy uuid.UUID
	CreatedAt time.Time

	// Joined fields
	Author *UserInfo
}

type UserInfo struct {
	ID   uuid.UUID
	Name string
}

// Filter narrows List and Count. Zero values match everything.
type Filter struct {
	Category     string
	Query        string
	RequiredTier access.Tier
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (f Filter) where(args []any) (string, []any) {
	clause := " WHERE TRUE"
	if f.Category != "" {
		args = append(args, f.Category)
		clause += fmt.Sprintf(" AND p.category = $%d", len(args))
	}
	if f.RequiredTier != "" {
		args = append(args, string(f.RequiredTier))
		clause += fmt.Sprintf(" AND p.required_tier = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		clause += fmt.Sprintf(" AND (p.title ILIKE $%d OR p.summary ILIKE $%d)", len(args), len(args))
	}
	return clause, args
}

// List returns prompt metadata without bodies, most recently updated first.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Prompt, error) {
	where, args := f.where(nil)
	args = append(args, limit, offset)

	query := `
		SELECT p.id, p.slug, p.title, p.summary, p.category, p.required_tier,
		       p.current_revision_id, p.created_by, p.created_at, p.updated_at,
		       u.id, u.name
		FROM prompts p
		LEFT JOIN users u ON p.created_by = u.id` + where + fmt.Sprintf(`
		ORDER BY p.updated_at DESC, p.id
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	var out []Prompt
	for rows.Next() {
		var p Prompt
		var authorID *uuid.UUID
		var authorName *string
		err := rows.Scan(
			&p.ID, &p.Slug, &p.Title, &p.Summary, &p.Category, &p.RequiredTier,
			&p.CurrentRevisionID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
			&authorID, &authorName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		if authorID != nil && authorName != nil {
			p.Author = &UserInfo{ID: *authorID, Name: *authorName}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where(nil)
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM prompts p`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count prompts: %w", err)
	}
	return n, nil
}

const selectPrompt = `
	SELECT p.id, p.slug, p.title, p.summary, p.category, p.body, p.required_tier,
	       p.current_revision_id, p.created_by, p.created_at, p.updated_at,
	       u.id, u.name
	FROM prompts p
	LEFT JOIN users u ON p.created_by = u.id
`

func (r *Repository) scanOne(row pgx.Row) (*Prompt, error) {
	var p Prompt
	var authorID *uuid.UUID
	var authorName *string
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Summary, &p.Category, &p.Body, &p.RequiredTier,
		&p.CurrentRevisionID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&authorID, &authorName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query prompt: %w", err)
	}
	if authorID != nil && authorName != nil {
		p.Author = &UserInfo{ID: *authorID, Name: *authorName}
	}
	return &p, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Prompt, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectPrompt+` WHERE p.id = $1`, id))
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Prompt, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectPrompt+` WHERE p.slug = $1`, NormalizeSlug(slug)))
}

type CreateInput struct {
	Slug         string
	Title        string
	Summary      string
	Category     string
	Body         string
	RequiredTier access.Tier
	CreatedBy    uuid.UUID
	Message      string
}

func (r *Repository) Create(ctx context.Context, input CreateInput) (*Prompt, error) {
	if input.Slug == "" {
		input.Slug = input.Title
	}
	input.Slug = NormalizeSlug(input.Slug)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var promptID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO prompts (slug, title, summary, category, body, required_tier, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, input.Slug, input.Title, input.Summary, input.Category, input.Body, string(input.RequiredTier), input.CreatedBy).Scan(&promptID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("insert prompt: %w", err)
	}

	if err := insertRevision(ctx, tx, promptID, input.Body, input.Message, input.CreatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return r.GetByID(ctx, promptID)
}

type UpdateInput struct {
	Title        string
	Summary      string
	Category     string
	Body         string
	RequiredTier access.Tier
	Message      string
	// BaseRevisionID, when set, must equal the current revision or the
	// update fails with ErrConflict.
	BaseRevisionID uuid.UUID
	UpdatedBy      uuid.UUID
}

// Update replaces a prompt's fields. A new revision is written only when the
// body changes.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Prompt, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentRevID *uuid.UUID
	var currentBody string
	err = tx.QueryRow(ctx, `SELECT current_revision_id, body FROM prompts WHERE id = $1 FOR UPDATE`, id).
		Scan(&currentRevID, &currentBody)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query prompt: %w", err)
	}

	if input.BaseRevisionID != uuid.Nil && (currentRevID == nil || *currentRevID != input.BaseRevisionID) {
		return nil, ErrConflict
	}

	_, err = tx.Exec(ctx, `
		UPDATE prompts
		SET title = $1, summary = $2, category = $3, body = $4, required_tier = $5, updated_at = NOW()
		WHERE id = $6
	`, input.Title, input.Summary, input.Category, input.Body, string(input.RequiredTier), id)
	if err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}

	if input.Body != currentBody {
		if err := insertRevision(ctx, tx, id, input.Body, input.Message, input.UpdatedBy); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertRevision(ctx context.Context, tx pgx.Tx, promptID uuid.UUID, body, message string, author uuid.UUID) error {
	var revID uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO prompt_revisions (prompt_id, body, message, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, promptID, body, message, author).Scan(&revID)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE prompts SET current_revision_id = $1 WHERE id = $2`, revID, promptID)
	if err != nil {
		return fmt.Errorf("update current revision: %w", err)
	}
	return nil
}

func (r *Repository) GetRevision(ctx context.Context, promptID, revID uuid.UUID) (*Revision, error) {
	var rev Revision
	var authorID *uuid.UUID
	var authorName *string

	err := r.db.QueryRow(ctx, `
		SELECT r.id, r.prompt_id, r.body, r.message, r.created_by, r.created_at,
		       u.id, u.name
		FROM prompt_revisions r
		LEFT JOIN users u ON r.created_by = u.id
		WHERE r.prompt_id = $1 AND r.id = $2
	`, promptID, revID).Scan(
		&rev.ID, &rev.PromptID, &rev.Body, &rev.Message, &rev.CreatedBy, &rev.CreatedAt,
		&authorID, &authorName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query revision: %w", err)
	}
	if authorID != nil && authorName != nil {
		rev.Author = &UserInfo{ID: *authorID, Name: *authorName}
	}
	return &rev, nil
}

// ListRevisions returns a prompt's revisions newest first.
func (r *Repository) ListRevisions(ctx context.Context, promptID uuid.UUID) ([]Revision, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.prompt_id, r.body, r.message, r.created_by, r.created_at,
		       u.id, u.name
		FROM prompt_revisions r
		LEFT JOIN users u ON r.created_by = u.id
		WHERE r.prompt_id = $1
		ORDER BY r.created_at DESC, r.id
	`, promptID)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var rev Revision
		var authorID *uuid.UUID
		var authorName *string
		err := rows.Scan(
			&rev.ID, &rev.PromptID, &rev.Body, &rev.Message, &rev.CreatedBy, &rev.CreatedAt,
			&authorID, &authorName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if authorID != nil && authorName != nil {
			rev.Author = &UserInfo{ID: *authorID, Name: *authorName}
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
