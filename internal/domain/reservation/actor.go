package reservation

// Actor は操作を行う認証済みの利用者
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Owns は予約の所有者かを返す
func (a Actor) Owns(r *Reservation) bool {
	return a.UserID != "" && a.UserID == r.UserID
}

// CanAccess は所有者または管理者であることを確認する
func (a Actor) CanAccess(r *Reservation) error {
	if a.IsAdmin || a.Owns(r) {
		return nil
	}
	return ErrForbidden
}

// RequireAdmin は管理者であることを確認する
func (a Actor) RequireAdmin() error {
	if !a.IsAdmin {
		return ErrAdminRequired
	}
	return nil
}
