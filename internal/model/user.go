package model

// User is the acting identity behind a credential and the owner of import
// jobs. Email is the contact address used for notifications and may be empty.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin"`
}

// CanRead reports whether u may see a job owned by ownerID.
func (u User) CanRead(ownerID string) bool {
	return u.Admin || u.ID == ownerID
}
