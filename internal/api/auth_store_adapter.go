package api

import "github.com/kurataraku/survey-app/internal/services"

type authStoreAdapter struct {
	store Store
}

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindAdminByEmail(email string) (*services.AdminUser, error) {
	u := a.store.FindAdminByEmail(email)
	if u == nil {
		return nil, nil
	}
	return &services.AdminUser{ID: u.ID, Email: u.Email, PassHash: u.PassHash, CreatedAt: u.CreatedAt}, nil
}

func (a *authStoreAdapter) AddAdmin(u *services.AdminUser) error {
	if u == nil {
		return services.NewInvalidError("admin required")
	}
	a.store.AddAdmin(&AdminUser{ID: u.ID, Email: u.Email, PassHash: u.PassHash, CreatedAt: u.CreatedAt})
	return nil
}
