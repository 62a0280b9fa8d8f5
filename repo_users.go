package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivateUserSQL promotes a pending user in a single conditional write.
// The WHERE clause re-validates the token at write time, so an expired or
// already-consumed invitation affects zero rows and the caller can detect
// the race by the empty result.
var ActivateUserSQL = `UPDATE "users" AS "usr"
SET
	"status" = 'active',
	"password_hash" = ?,
	"avatar_ref" = CASE WHEN ? = '' THEN "avatar_ref" ELSE ? END,
	"invitation_token" = NULL,
	"invitation_expires_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."invitation_token" = ?
AND "usr"."status" = 'pending'
AND "usr"."invitation_expires_at" > ?
RETURNING *;`

// AssignInvitationSQL overwrites the invitation token and expiry on a
// pending row, implicitly invalidating any previous token.
var AssignInvitationSQL = `UPDATE "users" AS "usr"
SET
	"invitation_token" = ?,
	"invitation_expires_at" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
AND "usr"."status" = 'pending'
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	ListAll(ctx context.Context) ([]*User, error)
	ListAllTx(ctx context.Context, tx bun.IDB) ([]*User, error)
	CountAll(ctx context.Context) (int, error)
	CountAllTx(ctx context.Context, tx bun.IDB) (int, error)

	FindByInvitationToken(ctx context.Context, token string, now time.Time) (*User, error)
	FindByInvitationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)
	AssignInvitation(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) (*User, error)
	AssignInvitationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) (*User, error)
	ActivateByToken(ctx context.Context, token, passwordHash, avatarRef string, now time.Time) (*User, error)
	ActivateByTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash, avatarRef string, now time.Time) (*User, error)

	DeleteByID(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error)
}

type usersRepo struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*usersRepo)(nil)
	_ repository.Repository[*User] = (*usersRepo)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &usersRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *usersRepo) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *usersRepo) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *usersRepo) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *usersRepo) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// ListAll returns every user ordered by creation time, the shape the
// index page renders. The criteria-driven List from the embedded
// repository stays available for filtered queries.
func (a *usersRepo) ListAll(ctx context.Context) ([]*User, error) {
	return a.ListAllTx(ctx, a.db)
}

func (a *usersRepo) ListAllTx(ctx context.Context, tx bun.IDB) ([]*User, error) {
	records := []*User{}
	err := tx.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *usersRepo) CountAll(ctx context.Context) (int, error) {
	return a.CountAllTx(ctx, a.db)
}

func (a *usersRepo) CountAllTx(ctx context.Context, tx bun.IDB) (int, error) {
	return tx.NewSelect().Model((*User)(nil)).Count(ctx)
}

func (a *usersRepo) FindByInvitationToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.FindByInvitationTokenTx(ctx, a.db, token, now)
}

func (a *usersRepo) FindByInvitationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.invitation_token = ?", token).
		Where("?TableAlias.status = ?", UserStatusPending).
		Where("?TableAlias.invitation_expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			// expired tokens fall through here too; the caller cannot
			// tell an expired invitation from a missing one
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *usersRepo) AssignInvitation(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) (*User, error) {
	return a.AssignInvitationTx(ctx, a.db, id, token, expiresAt)
}

func (a *usersRepo) AssignInvitationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) (*User, error) {
	rows, err := a.Repository.RawTx(ctx, tx, AssignInvitationSQL, token, expiresAt, id.String())
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return rows[0], nil
}

func (a *usersRepo) ActivateByToken(ctx context.Context, token, passwordHash, avatarRef string, now time.Time) (*User, error) {
	return a.ActivateByTokenTx(ctx, a.db, token, passwordHash, avatarRef, now)
}

func (a *usersRepo) ActivateByTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash, avatarRef string, now time.Time) (*User, error) {
	rows, err := a.Repository.RawTx(ctx, tx, ActivateUserSQL, passwordHash, avatarRef, avatarRef, token, now)
	if err != nil {
		return nil, err
	}

	// zero affected rows means the token was consumed or expired between
	// page render and submission
	if len(rows) == 0 {
		return nil, ErrInvitationConsumed
	}

	return rows[0], nil
}

func (a *usersRepo) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	return a.DeleteByIDTx(ctx, a.db, id)
}

func (a *usersRepo) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleViewer
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
