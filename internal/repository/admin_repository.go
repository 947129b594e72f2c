package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"livepoll/internal/domain"
)

type adminRepository struct {
	store StateStore
}

// NewAdminRepository stores the admin record under adminData and the flag under isAdminAuthenticated
func NewAdminRepository(store StateStore) AdminRepository {
	return &adminRepository{store: store}
}

func (r *adminRepository) Get(ctx context.Context) (*domain.AdminData, error) {
	raw, err := r.store.Load(ctx, KeyAdminData)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read admin data: %w", err)
	}

	var admin domain.AdminData
	if err := json.Unmarshal([]byte(raw), &admin); err != nil {
		return nil, fmt.Errorf("failed to decode admin data: %w", err)
	}
	return &admin, nil
}

func (r *adminRepository) Save(ctx context.Context, admin *domain.AdminData) error {
	data, err := json.Marshal(admin)
	if err != nil {
		return fmt.Errorf("failed to encode admin data: %w", err)
	}
	return r.store.Save(ctx, KeyAdminData, string(data))
}

func (r *adminRepository) IsAuthenticated(ctx context.Context) (bool, error) {
	raw, err := r.store.Load(ctx, KeyIsAdminAuthenticated)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read auth flag: %w", err)
	}
	return raw == "true", nil
}

func (r *adminRepository) SetAuthenticated(ctx context.Context, authenticated bool) error {
	if !authenticated {
		return r.store.Delete(ctx, KeyIsAdminAuthenticated)
	}
	return r.store.Save(ctx, KeyIsAdminAuthenticated, "true")
}
