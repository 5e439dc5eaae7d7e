package model

// RegisterParams is the already-parsed input of a registration request.
// Avatar is mandatory; Cover may be nil.
type RegisterParams struct {
	Username string
	Email    string
	FullName string
	Password string
	Avatar   *FileUpload
	Cover    *FileUpload
}

// LoginParams identifies an account by username or email.
type LoginParams struct {
	Username string
	Email    string
	Password string
}
