package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspass/checkin-server-go/internal/model"
)

type AdminRoleRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.AdminRole, error)
}

type adminRoleRepo struct {
	db *sqlx.DB
}

func NewAdminRoleRepository(db *sqlx.DB) AdminRoleRepository {
	return &adminRoleRepo{db: db}
}

func (r *adminRoleRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.AdminRole, error) {
	var role model.AdminRole
	err := r.db.GetContext(ctx, &role, `
		SELECT * FROM admin_roles WHERE user_id = $1
	`, userID)
	return HandleNotFound(&role, err)
}
