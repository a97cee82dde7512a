// Package userrepo reads emitters from the facturacion_users table, which is
// owned by the account service. The billing engine never writes it.
package userrepo

import (
	"context"
	"errors"
	"fmt"

	"billing/internal/core/ports"
	"billing/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.UserDirectory = (*GormUserDirectory)(nil)

// UserDTO is a row of facturacion_users. Username holds the emitter tax id.
type UserDTO struct {
	ID             int64  `gorm:"primaryKey"`
	Username       string `gorm:"size:20;not null"`
	SalePoint      int    `gorm:"not null"`
	Category       string `gorm:"size:2"`
	ExternalClient bool   `gorm:"not null;default:false"`
	Email          string `gorm:"size:255"`
}

func (UserDTO) TableName() string {
	return "facturacion_users"
}

type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

// GetUserByID returns the emitter or an errs.ObjectNotFoundError.
func (d *GormUserDirectory) GetUserByID(ctx context.Context, userID int64) (ports.User, error) {
	var dto UserDTO
	if err := d.db.WithContext(ctx).First(&dto, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, errs.NewObjectNotFoundError("user", userID)
		}
		return ports.User{}, fmt.Errorf("%w: get user: %w", ports.ErrPersistence, err)
	}

	if dto.Username == "" {
		return ports.User{}, errs.NewValueIsRequiredErrorWithCause("taxId",
			fmt.Errorf("user %d has no tax id", userID))
	}

	return ports.User{
		ID:        dto.ID,
		TaxID:     dto.Username,
		SalePoint: dto.SalePoint,
		Category:  dto.Category,
		External:  dto.ExternalClient,
		Email:     dto.Email,
	}, nil
}
